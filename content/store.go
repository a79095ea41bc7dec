package content

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
)

// ErrNoObject means no object exists with a given id.
var ErrNoObject = errors.New("no such object")

// Store persists objects and their metadata.
type Store interface {
	// Load returns the object with the given id, or ErrNoObject.
	Load(c *core.Context, id uuid.UUID) (*Object, error)

	// Save writes the object and replaces its stored metadata.
	Save(c *core.Context, obj *Object) error
}

// MemoryStore keeps objects in memory. Objects are copied in and out so
// callers cannot change stored state without calling Save.
type MemoryStore struct {
	m       sync.RWMutex
	objects map[uuid.UUID]Object
}

var _ Store = &MemoryStore{}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[uuid.UUID]Object)}
}

func (ms *MemoryStore) Load(c *core.Context, id uuid.UUID) (*Object, error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	obj, ok := ms.objects[id]
	if !ok {
		return nil, errors.Wrap(ErrNoObject, id.String())
	}
	obj.Metadata = append([]MetadataValue(nil), obj.Metadata...)
	return &obj, nil
}

func (ms *MemoryStore) Save(c *core.Context, obj *Object) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	cp := *obj
	cp.Metadata = append([]MetadataValue(nil), obj.Metadata...)
	cp.modified = false
	ms.objects[obj.ID] = cp
	return nil
}
