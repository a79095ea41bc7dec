// Package content models the repository objects handles point at: items,
// collections and communities, each carrying a list of qualified Dublin
// Core style metadata values.
package content

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ndlib/vhandle/core"
)

// Any matches every language (or qualifier) in metadata lookups.
const Any = "*"

// Field names a metadata element, e.g. dc.identifier.uri.
type Field struct {
	Schema    string
	Element   string
	Qualifier string
}

// IdentifierURI is the field handles are recorded in.
var IdentifierURI = Field{Schema: "dc", Element: "identifier", Qualifier: "uri"}

func (f Field) String() string {
	s := f.Schema + "." + f.Element
	if f.Qualifier != "" {
		s += "." + f.Qualifier
	}
	return s
}

// matches compares f against a pattern field whose qualifier may be Any.
func (f Field) matches(pattern Field) bool {
	if f.Schema != pattern.Schema || f.Element != pattern.Element {
		return false
	}
	return pattern.Qualifier == Any || f.Qualifier == pattern.Qualifier
}

// MetadataValue is one value of a field.
type MetadataValue struct {
	Field      Field
	Language   string
	Value      string
	Authority  string
	Confidence int
	Place      int
}

// Object is an item, collection or community.
type Object struct {
	ID       uuid.UUID
	Type     core.ObjectType
	Metadata []MetadataValue

	modified bool
}

// Ref returns a reference to o.
func (o *Object) Ref() core.Ref {
	return core.Ref{ID: o.ID, Type: o.Type}
}

// IsItem reports whether o is an item, the only kind of object that has
// versions.
func (o *Object) IsItem() bool {
	return o.Type == core.TypeItem
}

// Modified reports whether the metadata changed since the object was loaded
// or last saved.
func (o *Object) Modified() bool {
	return o.modified
}

func languageMatches(lang, pattern string) bool {
	return pattern == Any || strings.EqualFold(lang, pattern)
}
