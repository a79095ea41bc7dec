// Package versioning keeps the version histories of items. A History is
// the lineage of one logical work; each Version in it points one ordinal
// number at one item.
package versioning

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
)

var (
	// ErrNoVersion means an item is not part of any history.
	ErrNoVersion = errors.New("item has no version")
	// ErrDuplicate means a history already has a version with that number,
	// or the item is already versioned.
	ErrDuplicate = errors.New("version already exists")
)

// History is the lineage of one work.
type History struct {
	ID int64
}

// Version points an ordinal in a history at an item.
type Version struct {
	ID      int64
	History int64
	Item    uuid.UUID
	Number  int
	Date    time.Time
	Summary string
	Creator string
}

// Store persists histories and versions.
type Store interface {
	CreateHistory(c *core.Context) (*History, error)

	// VersionByItem returns the version pointing at item, or ErrNoVersion.
	VersionByItem(c *core.Context, item uuid.UUID) (*Version, error)

	// Versions lists the versions of a history, highest number first.
	Versions(c *core.Context, history int64) ([]*Version, error)

	// AddVersion saves v and assigns its ID.
	AddVersion(c *core.Context, v *Version) error

	DeleteVersion(c *core.Context, id int64) error
}

// MemoryStore keeps histories in memory.
type MemoryStore struct {
	m         sync.RWMutex
	histories int64
	ids       int64
	versions  map[int64]Version
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{versions: make(map[int64]Version)}
}

func (ms *MemoryStore) CreateHistory(c *core.Context) (*History, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.histories++
	return &History{ID: ms.histories}, nil
}

func (ms *MemoryStore) VersionByItem(c *core.Context, item uuid.UUID) (*Version, error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	for _, v := range ms.versions {
		if v.Item == item {
			v := v
			return &v, nil
		}
	}
	return nil, errors.Wrap(ErrNoVersion, item.String())
}

func (ms *MemoryStore) Versions(c *core.Context, history int64) ([]*Version, error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	var result []*Version
	for _, v := range ms.versions {
		if v.History == history {
			v := v
			result = append(result, &v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number > result[j].Number })
	return result, nil
}

func (ms *MemoryStore) AddVersion(c *core.Context, v *Version) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	for _, old := range ms.versions {
		if old.Item == v.Item || (old.History == v.History && old.Number == v.Number) {
			return errors.Wrapf(ErrDuplicate, "history %d number %d", v.History, v.Number)
		}
	}
	ms.ids++
	v.ID = ms.ids
	ms.versions[v.ID] = *v
	return nil
}

func (ms *MemoryStore) DeleteVersion(c *core.Context, id int64) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	delete(ms.versions, id)
	return nil
}
