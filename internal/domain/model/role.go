// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Role is a fixed role preference. The numeric order is the feature one-hot order.
type Role int

// Known roles. RoleAny is the zero-value fallback for unknown preferences.
const (
	RolePM Role = iota
	RoleFE
	RoleBE
	RoleDesign
	RoleAny

	// RoleCount is the number of known roles.
	RoleCount = int(RoleAny) + 1
)

var roleNames = [RoleCount]string{"PM", "FE", "BE", "Design", "Any"}

// Roles lists every role in table order.
func Roles() []Role {
	return []Role{RolePM, RoleFE, RoleBE, RoleDesign, RoleAny}
}

// Normalize maps out-of-range values to RoleAny.
func (r Role) Normalize() Role {
	if r < 0 || int(r) >= RoleCount {
		return RoleAny
	}
	return r
}

// String returns the wire name of the role.
func (r Role) String() string {
	return roleNames[r.Normalize()]
}

// LookupRole resolves a role name, reporting whether it is known.
func LookupRole(name string) (Role, bool) {
	name = strings.TrimSpace(name)
	for i, n := range roleNames {
		if strings.EqualFold(n, name) {
			return Role(i), true
		}
	}
	return RoleAny, false
}

// ParseRole resolves a role preference; empty or unknown names map to RoleAny.
func ParseRole(name string) Role {
	r, _ := LookupRole(name)
	return r
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode to RoleAny.
func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// RoleRequirement holds the required headcount per role. The zero value means no constraint.
type RoleRequirement [RoleCount]int

// DefaultRequirement is one of each concrete role.
func DefaultRequirement() RoleRequirement {
	var req RoleRequirement
	req[RolePM], req[RoleFE], req[RoleBE], req[RoleDesign] = 1, 1, 1, 1
	return req
}

// ParseRequirement converts a wire mapping into a requirement table.
// Unknown role keys and negative counts are rejected.
func ParseRequirement(in map[string]int) (RoleRequirement, error) {
	var req RoleRequirement
	for name, count := range in {
		role, ok := LookupRole(name)
		if !ok {
			return req, fmt.Errorf("%w: unknown role %q in required_roles", ErrInvalidRequest, name)
		}
		if count < 0 {
			return req, fmt.Errorf("%w: negative count for role %s", ErrInvalidRequest, role)
		}
		req[role] += count
	}
	return req, nil
}

// Total returns the summed headcount across roles.
func (q RoleRequirement) Total() int {
	total := 0
	for _, c := range q {
		total += c
	}
	return total
}

// Map converts the table back into its wire form, omitting zero entries.
func (q RoleRequirement) Map() map[string]int {
	out := make(map[string]int)
	for _, r := range Roles() {
		if q[r] > 0 {
			out[r.String()] = q[r]
		}
	}
	return out
}
