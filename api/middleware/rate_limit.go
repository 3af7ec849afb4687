package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lromero/storefront-backend/api/responses"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
)

// RateLimiterStore is the counter surface the limiter needs.
type RateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy defines the throttling parameters for a traffic surface.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int64
}

// NewRateLimitPolicy builds a policy with the supplied window and limit.
func NewRateLimitPolicy(name string, window time.Duration, limit int64) RateLimitPolicy {
	return RateLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		window: window,
		limit:  limit,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

func (p RateLimitPolicy) scope(identityKey string) string {
	name := p.name
	if name == "" {
		name = "default"
	}
	return name + ":" + identityKey
}

// RateLimit enforces a per-identity fixed window counter. A missing store or
// a store failure fails open; throttling is protection, not a dependency.
func RateLimit(policy RateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || !policy.enabled() {
				next.ServeHTTP(w, r)
				return
			}

			ident, ok := IdentityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := store.FixedWindowAllow(r.Context(), policy.scope(ident.Key()), policy.limit, policy.window)
			if err != nil {
				if logg != nil {
					ctx := logg.WithField(r.Context(), "error", err.Error())
					logg.Warn(ctx, "rate limit store unavailable, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{
						"surface": policy.name,
						"count":   count,
					})
					logg.Warn(ctx, "request throttled")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
