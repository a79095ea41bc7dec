package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ObjectType identifies the kind of a repository object. The values match
// the numbering used in the handle table of older repositories, so
// restored data keeps its meaning.
type ObjectType int

const (
	TypeBitstream  ObjectType = 0
	TypeBundle     ObjectType = 1
	TypeItem       ObjectType = 2
	TypeCollection ObjectType = 3
	TypeCommunity  ObjectType = 4
	TypeSite       ObjectType = 5
)

var typeNames = map[ObjectType]string{
	TypeBitstream:  "bitstream",
	TypeBundle:     "bundle",
	TypeItem:       "item",
	TypeCollection: "collection",
	TypeCommunity:  "community",
	TypeSite:       "site",
}

func (t ObjectType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseObjectType converts a type name such as "item" into an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown object type %q", s)
}

// Ref points at a repository object without loading it.
type Ref struct {
	ID   uuid.UUID
	Type ObjectType
}

// IsZero reports whether r points at nothing.
func (r Ref) IsZero() bool {
	return r.ID == uuid.Nil
}

func (r Ref) String() string {
	return r.Type.String() + ":" + r.ID.String()
}
