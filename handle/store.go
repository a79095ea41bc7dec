package handle

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
)

var (
	// ErrNotFound means no object is registered under a handle.
	ErrNotFound = errors.New("handle not found")
	// ErrExists means a handle is already registered.
	ErrExists = errors.New("handle already exists")
)

// Store is the handle table: a key-value mapping from handle strings to
// the objects they name. Handles are never removed by moving them; a
// moved handle keeps its place in the creation order.
//
// Implementations run inside the Context's transaction when it has one.
type Store interface {
	// Put registers a new handle. It returns ErrExists if h is taken.
	Put(c *core.Context, h string, ref core.Ref) error

	// Get returns the object h names, or ErrNotFound.
	Get(c *core.Context, h string) (core.Ref, error)

	// Move points an existing handle at another object. It returns
	// ErrNotFound if h is not registered.
	Move(c *core.Context, h string, ref core.Ref) error

	// Handles lists the handles naming the given object, oldest first.
	Handles(c *core.Context, id uuid.UUID) ([]string, error)

	// Delete removes a handle. Deleting an unknown handle is not an error.
	Delete(c *core.Context, h string) error

	// NextID returns the next value of the suffix sequence used to mint
	// fresh handles. Values start at 1.
	NextID(c *core.Context) (int64, error)
}

// MemoryStore keeps the handle table in memory. It is intended for tests and
// for running without a database.
type MemoryStore struct {
	m       sync.RWMutex
	entries map[string]*memEntry
	owned   map[uuid.UUID]mapset.Set[string]
	rows    int64 // creation counter
	seq     int64 // suffix sequence
}

type memEntry struct {
	ref core.Ref
	row int64
}

var _ Store = &MemoryStore{}

// NewMemoryStore returns an empty handle table.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memEntry),
		owned:   make(map[uuid.UUID]mapset.Set[string]),
	}
}

func (ms *MemoryStore) Put(c *core.Context, h string, ref core.Ref) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	if _, ok := ms.entries[h]; ok {
		return errors.Wrap(ErrExists, h)
	}
	ms.rows++
	ms.entries[h] = &memEntry{ref: ref, row: ms.rows}
	ms.own(h, ref.ID)
	return nil
}

func (ms *MemoryStore) Get(c *core.Context, h string) (core.Ref, error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	e, ok := ms.entries[h]
	if !ok {
		return core.Ref{}, errors.Wrap(ErrNotFound, h)
	}
	return e.ref, nil
}

func (ms *MemoryStore) Move(c *core.Context, h string, ref core.Ref) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	e, ok := ms.entries[h]
	if !ok {
		return errors.Wrap(ErrNotFound, h)
	}
	if s, ok := ms.owned[e.ref.ID]; ok {
		s.Remove(h)
	}
	e.ref = ref
	ms.own(h, ref.ID)
	return nil
}

// own must be called with the write lock held.
func (ms *MemoryStore) own(h string, id uuid.UUID) {
	s, ok := ms.owned[id]
	if !ok {
		s = mapset.NewThreadUnsafeSet[string]()
		ms.owned[id] = s
	}
	s.Add(h)
}

func (ms *MemoryStore) Handles(c *core.Context, id uuid.UUID) ([]string, error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	s, ok := ms.owned[id]
	if !ok {
		return nil, nil
	}
	result := s.ToSlice()
	sort.Slice(result, func(i, j int) bool {
		return ms.entries[result[i]].row < ms.entries[result[j]].row
	})
	return result, nil
}

func (ms *MemoryStore) Delete(c *core.Context, h string) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	e, ok := ms.entries[h]
	if !ok {
		return nil
	}
	if s, ok := ms.owned[e.ref.ID]; ok {
		s.Remove(h)
	}
	delete(ms.entries, h)
	return nil
}

func (ms *MemoryStore) NextID(c *core.Context) (int64, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.seq++
	return ms.seq, nil
}
