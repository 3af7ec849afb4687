package middleware

import (
	"net/http"
	"strings"

	"github.com/lromero/storefront-backend/api/responses"
	"github.com/lromero/storefront-backend/internal/identity"
	pkgAuth "github.com/lromero/storefront-backend/pkg/auth"
	"github.com/lromero/storefront-backend/pkg/config"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
)

// Identity resolves the cart identity for every request: the authenticated
// customer when a bearer token is presented, otherwise an anonymous identity
// derived from the caller's network origin. A malformed token is rejected
// rather than silently downgraded to anonymous.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := identity.Session{}

			if token := bearerToken(r); token != "" {
				claims, err := pkgAuth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				customerID := claims.CustomerID
				sess.CustomerID = &customerID
			}

			origin := identity.RequestOrigin{
				RemoteAddr:   r.RemoteAddr,
				ForwardedFor: r.Header.Get("X-Forwarded-For"),
			}

			ident, err := identity.Resolve(sess, origin)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithIdentity(r.Context(), ident)
			if logg != nil {
				ctx = logg.WithIdentity(ctx, ident.Key())
				if customerID, ok := ident.CustomerID(); ok {
					ctx = logg.WithCustomerID(ctx, customerID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCustomer rejects requests whose resolved identity is not an
// authenticated customer.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromContext(r.Context())
			if !ok || !ident.IsCustomer() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
