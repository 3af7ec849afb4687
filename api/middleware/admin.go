package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/lromero/storefront-backend/api/responses"
	"github.com/lromero/storefront-backend/pkg/config"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
)

const adminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards the operational endpoints with a shared secret.
// With no token configured every admin request is refused.
func RequireAdminToken(cfg config.AdminConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access disabled"))
				return
			}

			presented := strings.TrimSpace(r.Header.Get(adminTokenHeader))
			if subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.Token)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin token rejected"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
