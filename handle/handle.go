// Package handle implements persistent "handle" identifiers: the Handle
// value, parsing of the external forms a handle may be written in, the
// key-value Store mapping handles to objects, and the Service built on it.
//
// A handle has the form prefix/suffix. The suffix may end in ".N", a
// version ordinal. The canonical form of a handle is the handle without its
// ordinal, so "1234/100.2" and "1234/100" name the same lineage.
package handle

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformed means a string is not a handle.
var ErrMalformed = errors.New("malformed handle")

// Handle is a parsed handle. When Versioned is false Ordinal is zero and the
// handle is canonical. Digits holds the ordinal exactly as written, so
// "1234/100.02" prints back unchanged. Ordinal is -1 when Digits does not
// fit in an int.
type Handle struct {
	Prefix    string
	Suffix    string
	Ordinal   int
	Digits    string
	Versioned bool
}

// Parse splits s into its parts. It expects the bare prefix/suffix form;
// use a Parser for identifiers written as URLs or with a scheme.
func Parse(s string) (Handle, error) {
	i := strings.Index(s, "/")
	if i <= 0 || i == len(s)-1 {
		return Handle{}, errors.Wrap(ErrMalformed, s)
	}
	h := Handle{Prefix: s[:i], Suffix: s[i+1:]}
	if j := strings.LastIndexByte(h.Suffix, '.'); j >= 0 && isDigits(h.Suffix[j+1:]) {
		h.Digits = h.Suffix[j+1:]
		h.Suffix = h.Suffix[:j]
		h.Versioned = true
		h.Ordinal = -1
		if n, err := strconv.Atoi(h.Digits); err == nil {
			h.Ordinal = n
		}
	}
	return h, nil
}

// isDigits accepts a non-empty run of ASCII digits only; signs and spaces
// are not part of a version ordinal.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (h Handle) String() string {
	s := h.Prefix + "/" + h.Suffix
	if h.Versioned {
		d := h.Digits
		if d == "" {
			d = strconv.Itoa(h.Ordinal)
		}
		s += "." + d
	}
	return s
}

// Canonical returns h without its version ordinal.
func (h Handle) Canonical() Handle {
	return Handle{Prefix: h.Prefix, Suffix: h.Suffix}
}

// WithOrdinal returns the versioned handle for ordinal n in h's lineage.
func (h Handle) WithOrdinal(n int) Handle {
	return Handle{
		Prefix:    h.Prefix,
		Suffix:    h.Suffix,
		Ordinal:   n,
		Digits:    strconv.Itoa(n),
		Versioned: true,
	}
}

// Canonical strips a trailing ".N" ordinal from s. Strings that are not
// handles are returned unchanged. Canonical(Canonical(s)) == Canonical(s).
func Canonical(s string) string {
	h, err := Parse(s)
	if err != nil || !h.Versioned {
		return s
	}
	return h.Canonical().String()
}

// IsVersioned reports whether s is a handle carrying a version ordinal.
func IsVersioned(s string) bool {
	h, err := Parse(s)
	return err == nil && h.Versioned
}

// Versioned returns canonical.n for the canonical form of s.
func Versioned(s string, n int) string {
	return Canonical(s) + "." + strconv.Itoa(n)
}

// FromURL returns the handle at the end of a resolver URL, that is the last
// two path segments, e.g. "http://hdl.handle.net/1234/100" gives "1234/100".
// It returns "" when url contains no '/'.
func FromURL(url string) string {
	if !strings.Contains(url, "/") {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}
