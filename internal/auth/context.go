package auth

import (
	"context"
	"strings"
)

// Role is the coarse permission class carried in every token.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// ParseRole normalizes a role string. Empty input defaults to patient.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RolePatient:
		return RolePatient, nil
	case RoleDoctor:
		return RoleDoctor, nil
	default:
		return "", ErrInvalidRole
	}
}

// Principal is the verified caller identity attached to a request.
type Principal struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Name  string `json:"name,omitempty"`
}

// IsDoctor reports whether the caller holds the doctor role.
func (p Principal) IsDoctor() bool {
	return p.Role == RoleDoctor
}

type ctxKey string

const principalKey ctxKey = "dobbe.principal"

// WithPrincipal stores the caller identity in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the caller identity if present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.Email != ""
}
