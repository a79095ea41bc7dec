package server

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/internal/log"
)

// Caller is whoever sent a request. The zero Caller is anonymous and may
// only resolve handles.
type Caller struct {
	Name string
	Role core.Role
}

// A KeyChecker maps the API key sent in the X-Api-Key header to a Caller.
// Unknown keys give the anonymous Caller. An error means the key could not
// be checked at all.
type KeyChecker interface {
	Check(key string) (Caller, error)
}

// OpenAccess admits every request as the administrator "nobody". It is used
// when no key file is configured.
type OpenAccess struct{}

func (OpenAccess) Check(key string) (Caller, error) {
	return Caller{Name: "nobody", Role: core.RoleAdmin}, nil
}

// KeyFile is a fixed set of API keys.
type KeyFile map[string]Caller

// ReadKeyFile reads one key per line in the form
//
//	<caller name>  <role>  <key>
//
// Fields are separated by whitespace. Roles are "MDOnly", "Read", "Write"
// or "Admin" in any case. Blank lines and lines starting with '#' are
// ignored. Lines with the wrong number of fields are logged and skipped.
func ReadKeyFile(r io.Reader) (KeyFile, error) {
	keys := make(KeyFile)
	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			log.Warnf("key file line %d: expected 3 fields, found %d", lineno, len(fields))
			continue
		}
		if _, dup := keys[fields[2]]; dup {
			log.Warnf("key file line %d: key for %s repeats an earlier line", lineno, fields[0])
		}
		keys[fields[2]] = Caller{Name: fields[0], Role: core.ParseRole(fields[1])}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading key file")
	}
	return keys, nil
}

// LoadKeyFile reads the key file at path.
func LoadKeyFile(path string) (KeyFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadKeyFile(f)
}

func (k KeyFile) Check(key string) (Caller, error) {
	if key == "" {
		return Caller{}, nil
	}
	return k[key], nil
}
