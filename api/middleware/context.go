package middleware

import (
	"context"

	"github.com/lromero/storefront-backend/internal/identity"
)

type contextKey string

const ctxIdentity contextKey = "cart_identity"

// IdentityFromContext returns the resolved cart identity for the request.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	if ctx == nil {
		return identity.Identity{}, false
	}
	ident, ok := ctx.Value(ctxIdentity).(identity.Identity)
	if !ok || ident.IsZero() {
		return identity.Identity{}, false
	}
	return ident, true
}

// WithIdentity injects the resolved cart identity into the context.
func WithIdentity(ctx context.Context, ident identity.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, ident)
}
