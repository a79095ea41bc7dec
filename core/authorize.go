package core

import (
	"github.com/pkg/errors"
)

// ErrNotAuthorized is returned when the acting user may not perform an
// action on an object.
var ErrNotAuthorized = errors.New("not authorized")

// Action is something a user wants to do to an object.
type Action int

const (
	ActionRead Action = iota
	ActionWrite
)

// An Authorizer decides whether the user of a Context may perform an action
// on an object. It is consulted only when the Context holds no elevation
// token.
type Authorizer interface {
	Authorize(c *Context, ref Ref, action Action) error
}

// RoleAuthorizer allows reads to RoleRead and above, and writes to callers
// whose role is at least Write.
type RoleAuthorizer struct {
	Write Role
}

// DefaultAuthorizer requires RoleWrite for writes.
var DefaultAuthorizer Authorizer = RoleAuthorizer{Write: RoleWrite}

func (a RoleAuthorizer) Authorize(c *Context, ref Ref, action Action) error {
	need := RoleRead
	if action == ActionWrite {
		need = a.Write
	}
	if c.Role < need {
		return errors.Wrapf(ErrNotAuthorized, "%s on %s", c.User, ref)
	}
	return nil
}

// Check runs the authorizer unless an elevation token is held.
func Check(a Authorizer, c *Context, ref Ref, action Action) error {
	if c.Elevated() || a == nil {
		return nil
	}
	return a.Authorize(c, ref, action)
}
