package session

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the UserIdentity in the given context
func WithIdentityContext(ctx context.Context, identity *UserIdentity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity from the context.
func IdentityFromContext(ctx context.Context) (*UserIdentity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*UserIdentity)
	return raw, ok
}

// RouterIdentity extracts the UserIdentity from the router context
func RouterIdentity(ctx router.Context, key string) (*UserIdentity, bool) {
	if key == "" {
		key = "identity" // Default key used by the protected route gate
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	identity, ok := raw.(*UserIdentity)
	return identity, ok
}
