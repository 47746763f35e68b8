package auth

import (
	"net/http"

	"github.com/noah-isme/backend-liquido/internal/audit"
	"github.com/noah-isme/backend-liquido/internal/common"
	"github.com/noah-isme/backend-liquido/internal/obs"
	"github.com/noah-isme/backend-liquido/internal/security"
)

// Handler exposes HTTP handlers for the admin session endpoints.
type Handler struct {
	Service          *Service
	Audit            *audit.Service
	CSRF             security.CSRF
	AccessCookieName string
	CookieDomain     string
	CookieSecure     bool
	CookieSameSite   http.SameSite
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=1024"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		obs.RecordLogin("failure")
		h.audit(r, "auth.login", "", http.StatusUnauthorized, req.Username)
		common.WriteError(w, err)
		return
	}
	obs.RecordLogin("success")
	h.audit(r, "auth.login", result.Admin.Username, http.StatusOK, req.Username)

	h.setCookie(w, result.AccessToken, result.AccessExpiry.Unix()-h.Service.now().Unix())
	csrfToken, err := h.CSRF.Issue(w, h.cookieTemplate())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"admin":                   result.Admin,
		"access_token":            result.AccessToken,
		"access_token_expires_at": result.AccessExpiry,
		"csrf_token":              csrfToken,
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := common.BearerToken(r)
	if token == "" && h.AccessCookieName != "" {
		if cookie, err := r.Cookie(h.AccessCookieName); err == nil {
			token = cookie.Value
		}
	}
	subject, err := h.Service.Logout(r.Context(), token)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.audit(r, "auth.logout", subject, http.StatusNoContent, "")
	h.setCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := common.Subject(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	admin, err := h.Service.Me(subject)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, admin)
}

func (h *Handler) audit(r *http.Request, action, subject string, status int, attempted string) {
	if h.Audit == nil {
		return
	}
	actor := audit.Actor{Kind: audit.ActorKindAnonymous}
	if subject != "" {
		actor = audit.Actor{Kind: audit.ActorKindAdmin, Subject: subject}
	}
	var meta map[string]any
	if attempted != "" {
		meta = map[string]any{"username": attempted}
	}
	h.Audit.Record(r.Context(), audit.Entry{
		Actor:        actor,
		Action:       action,
		ResourceType: "admin_session",
		Status:       status,
		Metadata:     meta,
	}, r)
}

func (h *Handler) cookieTemplate() http.Cookie {
	return http.Cookie{
		Domain:   h.CookieDomain,
		Path:     "/",
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	}
}

// setCookie writes the access cookie; maxAge < 0 deletes it.
func (h *Handler) setCookie(w http.ResponseWriter, value string, maxAge int64) {
	if h.AccessCookieName == "" {
		return
	}
	cookie := h.cookieTemplate()
	cookie.Name = h.AccessCookieName
	cookie.Value = value
	cookie.HttpOnly = true
	cookie.MaxAge = int(maxAge)
	http.SetCookie(w, &cookie)
}
