// Package identifier assigns persistent identifiers to repository objects.
//
// VersionedProvider hands out handles that follow an item's version
// history. The first version of a work is registered under a plain handle,
// the canonical handle. When a new version is made, the canonical handle is
// moved to the new item, and every version keeps a handle of its own formed
// by appending its version number:
//
//	1234/100    -> latest version (item 3)
//	1234/100.1  -> item 1
//	1234/100.2  -> item 2
//	1234/100.3  -> item 3
//
// Deleting the latest version moves the canonical handle back to the
// version before it.
package identifier

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/content"
	"github.com/ndlib/vhandle/core"
)

var (
	// ErrNotResolvable means an object has no identifier, or its
	// identifier could not be looked up.
	ErrNotResolvable = errors.New("identifier not resolvable")

	// ErrIllegalState marks conditions that cannot happen when the
	// stores are consistent, such as an authorization failure while
	// authorization is switched off.
	ErrIllegalState = errors.New("illegal state")

	// ErrVersioningDisabled is returned when building a VersionedProvider
	// for a site that has versioning switched off.
	ErrVersioningDisabled = errors.New("versioned handles need versioning enabled")
)

// Error reports a failed identifier operation on an object.
type Error struct {
	Op     string
	Object uuid.UUID
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s identifier for %s: %v", e.Op, e.Object, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Provider mints, registers and resolves identifiers of one kind.
type Provider interface {
	// Supports reports whether identifier is of the kind this provider
	// handles.
	Supports(identifier string) bool

	// Mint returns the identifier of obj, creating one if needed.
	Mint(c *core.Context, obj *content.Object) (string, error)

	// Register mints an identifier for obj and records it in the
	// object's metadata.
	Register(c *core.Context, obj *content.Object) (string, error)

	// RegisterAs registers obj under a given identifier. Restores of
	// archived objects use it.
	RegisterAs(c *core.Context, obj *content.Object, identifier string) error

	// Reserve binds identifier to obj without further bookkeeping.
	Reserve(c *core.Context, obj *content.Object, identifier string) error

	// Resolve returns the object named by identifier, or nil.
	Resolve(c *core.Context, identifier string) *content.Object

	// Lookup returns the identifier of obj, or ErrNotResolvable.
	Lookup(c *core.Context, obj *content.Object) (string, error)

	// Delete updates identifiers for obj being removed.
	Delete(c *core.Context, obj *content.Object) error
}
