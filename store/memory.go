package store

import (
	"bytes"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Memory implements a simple in-memory store. It is intended mainly for
// testing, and for manifests uploaded over the REST interface.
type Memory struct {
	m     sync.RWMutex
	store map[string][]byte
}

var _ ROStore = &Memory{}

// NewMemory returns a new, empty memory store.
func NewMemory() *Memory {
	return &Memory{store: make(map[string][]byte)}
}

// Put saves a copy of value under key, replacing anything there.
func (ms *Memory) Put(key string, value []byte) {
	ms.m.Lock()
	ms.store[key] = append([]byte(nil), value...)
	ms.m.Unlock()
}

// ListPrefix returns all the keys which begin with the given prefix, in
// sorted order.
func (ms *Memory) ListPrefix(prefix string) ([]string, error) {
	var result []string
	ms.m.RLock()
	for k := range ms.store {
		if strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	ms.m.RUnlock()
	sort.Strings(result)
	return result, nil
}

// Open returns a ReadAtCloser and the size of the given value.
func (ms *Memory) Open(key string) (ReadAtCloser, int64, error) {
	ms.m.RLock()
	v, ok := ms.store[key]
	ms.m.RUnlock()
	if !ok {
		return nil, 0, errors.Wrap(ErrNotExist, key)
	}
	// values are never changed in place, so readers may share them
	return nopCloser{bytes.NewReader(v)}, int64(len(v)), nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
