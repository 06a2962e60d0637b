// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// PrincipalContext contains the authenticated principal's token claims.
// It is populated by the Auth middleware and consumed by domain services
// for authorization decisions.
type PrincipalContext struct {
	PrincipalID string
	RoleTier    string
	AccountKind string // EMPLOYEE or CUSTOMER
}

type principalContextKey struct{}

// WithPrincipal adds PrincipalContext to context.
func WithPrincipal(ctx context.Context, p *PrincipalContext) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// GetPrincipal returns PrincipalContext from context.
func GetPrincipal(ctx context.Context) *PrincipalContext {
	if v, ok := ctx.Value(principalContextKey{}).(*PrincipalContext); ok {
		return v
	}
	return nil
}

// GetPrincipalID returns the principal ID from context or empty string.
func GetPrincipalID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.PrincipalID
	}
	return ""
}
