// Package store provides a simple, read-only, stream based key-value
// interface over the places restore manifests are kept. Values are streams,
// so large manifests never have to be held in memory twice.
package store

import (
	"io"

	"github.com/pkg/errors"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// ROStore lists and retrieves the contents of a store.
type ROStore interface {
	// ListPrefix returns the keys beginning with prefix.
	ListPrefix(prefix string) ([]string, error)

	// Open returns a reader for key along with its size.
	Open(key string) (ReadAtCloser, int64, error)
}

var (
	// ErrNotExist means a key is not in the store.
	ErrNotExist = errors.New("key does not exist")

	// ErrKeyContainsSlash means the key provided contains a forward slash '/'
	ErrKeyContainsSlash = errors.New("key contains forward slash")
)

// NewReader converts a ReaderAt into a io.Reader. It is here as a utility to
// help work with the ReadAtCloser returned by Open.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// reading less than a full buffer is not an error for
		// an io.Reader
		err = nil
	}
	return
}

// ReadAll loads the whole value of key.
func ReadAll(s ROStore, key string) ([]byte, error) {
	r, _, err := s.Open(key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(NewReader(r))
}
