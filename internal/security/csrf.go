package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-liquido/internal/common"
)

// DefaultCSRFName is used for both the header and the cookie when CSRF.Header is empty.
const DefaultCSRFName = "X-CSRF-Token"

// CSRF protects cookie-authenticated requests using the double-submit technique.
// Requests carrying a bearer token are exempt since browsers never attach one
// on their own.
type CSRF struct {
	Header string
}

func (c CSRF) name() string {
	if name := strings.TrimSpace(c.Header); name != "" {
		return name
	}
	return DefaultCSRFName
}

// Middleware enforces that unsafe requests include a CSRF header matching the cookie.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	name := c.name()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		if common.BearerToken(r) != "" {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(name))
		cookie, err := r.Cookie(name)
		switch {
		case token == "":
			common.JSONError(w, http.StatusForbidden, "CSRF_MISSING", "missing csrf token", nil)
		case err != nil || strings.TrimSpace(cookie.Value) == "":
			common.JSONError(w, http.StatusForbidden, "CSRF_MISSING", "missing csrf cookie", nil)
		case subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1:
			common.JSONError(w, http.StatusForbidden, "CSRF_INVALID", "invalid csrf token", nil)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Issue sets a fresh CSRF cookie readable by scripts and returns its value.
func (c CSRF) Issue(w http.ResponseWriter, template http.Cookie) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	template.Name = c.name()
	template.Value = token
	template.HttpOnly = false
	if template.Path == "" {
		template.Path = "/"
	}
	http.SetCookie(w, &template)
	return token, nil
}
