// Package restore replays the handle assignments recorded in an archive
// manifest. A manifest lists the objects of an archived repository and the
// handle each one carried:
//
//	{"entries": [
//	    {"id": "…", "type": "item", "handle": "1234/100.1"},
//	    {"id": "…", "type": "item", "handle": "1234/100"}
//	]}
//
// Older versions appear under their versioned handle and the latest one
// under the canonical handle.
package restore

import (
	"sort"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/core"
	"github.com/ndlib/vhandle/handle"
	"github.com/ndlib/vhandle/store"
)

// Entry is one object of a manifest. Handle may be empty, meaning the object
// gets a fresh one.
type Entry struct {
	ID     uuid.UUID
	Type   core.ObjectType
	Handle string
}

// Manifest is a parsed manifest.
type Manifest struct {
	Entries []Entry
}

// Parse decodes a manifest.
func Parse(b []byte) (*Manifest, error) {
	v, err := jason.NewObjectFromBytes(b)
	if err != nil {
		return nil, errors.Wrap(err, "manifest")
	}
	list, err := v.GetObjectArray("entries")
	if err != nil {
		return nil, errors.Wrap(err, "manifest entries")
	}
	m := &Manifest{}
	for i, e := range list {
		var entry Entry
		id, err := e.GetString("id")
		if err == nil {
			entry.ID, err = uuid.Parse(id)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d id", i)
		}
		entry.Type = core.TypeItem
		if typ, err := e.GetString("type"); err == nil {
			entry.Type, err = core.ParseObjectType(typ)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
		}
		entry.Handle, _ = e.GetString("handle")
		m.Entries = append(m.Entries, entry)
	}
	return m, nil
}

// Load reads and parses the manifest stored under key.
func Load(s store.ROStore, key string) (*Manifest, error) {
	b, err := store.ReadAll(s, key)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", key)
	}
	return Parse(b)
}

// Order sorts entries so each lineage is replayed oldest first: entries are
// grouped by canonical handle, versioned handles come in ordinal order, and
// a bare canonical handle comes last in its group. Entries without a handle
// go at the end. The sort is stable, so anything else keeps its manifest
// order.
func Order(entries []Entry) []Entry {
	type keyed struct {
		Entry
		canonical string
		bare      bool
		ordinal   int
	}
	list := make([]keyed, len(entries))
	for i, e := range entries {
		k := keyed{Entry: e, canonical: handle.Canonical(e.Handle), bare: true}
		if h, err := handle.Parse(e.Handle); err == nil && h.Versioned {
			k.bare = false
			k.ordinal = h.Ordinal
		}
		list[i] = k
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if (a.canonical == "") != (b.canonical == "") {
			return b.canonical == ""
		}
		if a.canonical != b.canonical {
			return a.canonical < b.canonical
		}
		if a.bare != b.bare {
			return b.bare
		}
		return a.ordinal < b.ordinal
	})
	result := make([]Entry, len(list))
	for i := range list {
		result[i] = list[i].Entry
	}
	return result
}
