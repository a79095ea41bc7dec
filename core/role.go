package core

import (
	"strings"
)

// Role is the access level of a caller.
type Role int

const (
	RoleUnknown Role = iota
	RoleMDOnly
	RoleRead
	RoleWrite
	RoleAdmin
)

// ParseRole converts a role name, ignoring case. Unrecognized names give
// RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToLower(s) {
	case "mdonly":
		return RoleMDOnly
	case "read":
		return RoleRead
	case "write":
		return RoleWrite
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleMDOnly:
		return "MDOnly"
	case RoleRead:
		return "Read"
	case RoleWrite:
		return "Write"
	case RoleAdmin:
		return "Admin"
	}
	return "Unknown"
}
