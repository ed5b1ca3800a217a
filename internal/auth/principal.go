package auth

import (
	"context"
	"strings"
)

// Role is the closed set of principal roles.
type Role string

const (
	RoleFarmer     Role = "farmer"
	RoleGovernment Role = "government"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleGovernment:
		return true
	}
	return false
}

// ParseRole converts a raw role string; the second result is false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Principal is the authenticated actor resolved from a bearer token.
type Principal struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (p Principal) IsFarmer() bool     { return p.Role == RoleFarmer }
func (p Principal) IsGovernment() bool { return p.Role == RoleGovernment }

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by the gate.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
