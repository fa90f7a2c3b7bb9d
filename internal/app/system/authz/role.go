// Package authz defines the role hierarchy and resolves the role of the
// authenticated identity on each request.
//
// Roles form a strict hierarchy: officer < captain < admin. Every
// "is at least as privileged as" decision in the codebase goes through
// Role.AtLeast so the ordering lives in exactly one place.
package authz

import (
	"fmt"
	"strings"
)

// Role is one of the three assignable roles.
type Role string

const (
	Officer Role = "officer"
	Captain Role = "captain"
	Admin   Role = "admin"
)

// rank maps each role to its position in the hierarchy. Higher outranks
// lower. An unknown role ranks below every real one.
func rank(r Role) int {
	switch r {
	case Officer:
		return 1
	case Captain:
		return 2
	case Admin:
		return 3
	default:
		return 0
	}
}

// Rank returns the role's position in the hierarchy (officer=1, captain=2,
// admin=3; anything else 0).
func (r Role) Rank() int { return rank(r) }

// AtLeast reports whether r is at least as privileged as other.
func (r Role) AtLeast(other Role) bool { return rank(r) >= rank(other) }

// Valid reports whether r is one of the three assignable roles.
func (r Role) Valid() bool { return rank(r) > 0 }

// Parse normalizes and validates a role string.
func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// All lists the assignable roles in ascending order of privilege.
func All() []Role { return []Role{Officer, Captain, Admin} }
