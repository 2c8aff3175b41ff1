package router

import (
	"net/http"
	"strings"

	"github.com/adamskt/Coalesce/internal/auth"
	"github.com/adamskt/Coalesce/internal/config"
	"github.com/adamskt/Coalesce/internal/logger"
)

// newAuthMiddleware builds the JWT middleware. With auth disabled every
// request runs as the anonymous principal.
func newAuthMiddleware(cfg config.AuthConfig) (func(http.HandlerFunc) http.HandlerFunc, error) {
	if !cfg.Enabled {
		passthrough := func(next http.HandlerFunc) http.HandlerFunc { return next }
		return passthrough, nil
	}

	validator, err := auth.NewJWTValidator(cfg.JWT)
	if err != nil {
		return nil, err
	}

	middleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("jwt_rejected", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			ctx := auth.WithClaims(r.Context(), claims)
			ctx = auth.WithPrincipal(ctx, auth.FromClaims(claims))
			next(w, r.WithContext(ctx))
		}
	}
	return middleware, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
