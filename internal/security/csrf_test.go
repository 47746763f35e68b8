package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func TestCSRFMiddlewareBlocksMissingToken(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/forms", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "CSRF_MISSING")
}

func TestCSRFMiddlewareRejectsMismatch(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/forms", nil)
	req.Header.Set(DefaultCSRFName, "one")
	req.AddCookie(&http.Cookie{Name: DefaultCSRFName, Value: "two"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "CSRF_INVALID")
}

func TestCSRFIssueThenSubmit(t *testing.T) {
	csrf := CSRF{Header: "X-CSRF-Token"}
	issued := httptest.NewRecorder()
	token, err := csrf.Issue(issued, http.Cookie{SameSite: http.SameSiteLaxMode})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	cookies := issued.Result().Cookies()
	require.Len(t, cookies, 1)
	require.False(t, cookies[0].HttpOnly)
	require.Equal(t, "/", cookies[0].Path)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/forms/abc", nil)
	req.Header.Set("X-CSRF-Token", token)
	req.AddCookie(cookies[0])
	rr := httptest.NewRecorder()
	csrf.Middleware(okHandler(http.StatusNoContent)).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCSRFMiddlewareSkipsBearerAndSafeMethods(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusAccepted))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calculations", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/forms/abc", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
}
