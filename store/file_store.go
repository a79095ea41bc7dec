package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/internal/log"
)

// FileSystem implements a store over the files in one directory. Keys are
// file names, so they may not contain a forward slash '/'. If you want the
// files to have a specific extension, it needs to be part of the key.
type FileSystem struct {
	root string
}

var _ ROStore = &FileSystem{}

// NewFileSystem creates a new FileSystem store based at the given root path.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root}
}

// ListPrefix returns the names of the regular files beginning with prefix.
func (s *FileSystem) ListPrefix(prefix string) ([]string, error) {
	if strings.Contains(prefix, "/") {
		return nil, ErrKeyContainsSlash
	}
	matches, err := filepath.Glob(filepath.Join(s.root, prefix+"*"))
	if err != nil {
		return nil, err
	}
	var result []string
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			log.WithField("root", s.root).Warnf("list: %v", err)
			raven.CaptureError(err, map[string]string{"Root": s.root})
			continue
		}
		if fi.Mode().IsRegular() {
			result = append(result, filepath.Base(m))
		}
	}
	sort.Strings(result)
	return result, nil
}

// Open returns a reader for the given key along with its size.
func (s *FileSystem) Open(key string) (ReadAtCloser, int64, error) {
	if strings.Contains(key, "/") {
		return nil, 0, ErrKeyContainsSlash
	}
	f, err := os.Open(filepath.Join(s.root, key))
	if os.IsNotExist(err) {
		return nil, 0, errors.Wrap(ErrNotExist, key)
	}
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}
