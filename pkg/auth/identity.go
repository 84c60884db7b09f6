package auth

import (
	"context"

	"github.com/edushield/edushield/pkg/contextkeys"
)

// Identity is the immutable request identity bound to the context after
// session validation. Handlers and the authorization engine read it; nothing
// mutates it after binding.
type Identity struct {
	UserID      string
	DisplayName string
	Email       string
	Role        Role
	SessionID   string
	Token       string
}

// WithIdentity binds the identity to the context
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return contextkeys.WithIdentity(ctx, ident)
}

// IdentityFromContext extracts the bound identity, nil when absent
func IdentityFromContext(ctx context.Context) *Identity {
	v := ctx.Value(contextkeys.IdentityKey)
	if v == nil {
		return nil
	}
	ident, ok := v.(*Identity)
	if !ok {
		return nil
	}
	return ident
}
