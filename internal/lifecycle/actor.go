// Package lifecycle holds the ticket rules every view and mutation is built
// on: who the caller is, which status transitions are legal, how input is
// validated, which tickets each view may return and in what order, and
// which changes notify the ticket owner.
//
// Everything here is a pure function of its arguments. Storage, transport
// and time are supplied by the caller.
package lifecycle

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of session roles.
type Role uint8

const (
	RoleStudent Role = iota + 1
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// ParseRole maps the stored role name onto Role. Any other value is rejected.
func ParseRole(s string) (Role, error) {
	switch s {
	case "student":
		return RoleStudent, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsStudent() bool {
	return a.Role == RoleStudent
}

// Valid reports whether the actor carries an identity and a known role.
func (a Actor) Valid() bool {
	return a.UserID != uuid.Nil && (a.Role == RoleStudent || a.Role == RoleAdmin)
}

// Owns reports whether the actor created the ticket identified by owner.
func (a Actor) Owns(owner uuid.UUID) bool {
	return a.UserID != uuid.Nil && a.UserID == owner
}
