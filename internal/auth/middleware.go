package auth

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-liquido/internal/common"
	"github.com/noah-isme/backend-liquido/internal/obs"
)

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Service      *Service
	AccessCookie string
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Service == nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
			return
		}
		token := m.extractToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		claims, err := m.Service.ParseAccessToken(r.Context(), token)
		if err != nil {
			if common.IsAppError(err) {
				common.WriteError(w, err)
				return
			}
			common.JSONError(w, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "cannot verify token", nil)
			return
		}
		obs.AddLogField(r.Context(), "subject", claims.Subject)
		ctx := common.WithSubject(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) extractToken(r *http.Request) string {
	if token := common.BearerToken(r); token != "" {
		return token
	}
	if m.AccessCookie != "" {
		if cookie, err := r.Cookie(m.AccessCookie); err == nil {
			return strings.TrimSpace(cookie.Value)
		}
	}
	return ""
}
