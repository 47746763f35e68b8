package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-liquido/internal/app"
	"github.com/noah-isme/backend-liquido/internal/auth"
	"github.com/noah-isme/backend-liquido/internal/config"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AccessCookieName:    "liquido_session",
		CookieSameSite:      http.SameSiteLaxMode,
		FormSessionTTL:      30 * time.Minute,
		FormLockTTL:         time.Second,
		FormInputRateMax:    3,
		FormInputRateWindow: time.Minute,
		LoginRateLimit:      "5-M",
		IdempotencyTTL:      time.Hour,
		RequestBodyMaxBytes: 1024,
	}
	deps, err := app.Build(context.Background(), cfg, app.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	hash, err := argon2id.CreateHash("correct horse battery", &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	svc, err := auth.NewService(auth.Config{
		Username:       "admin",
		PasswordHash:   hash,
		Secret:         "router-test-secret",
		AccessTokenTTL: time.Minute,
		Denylist:       deps.Denylist,
	})
	require.NoError(t, err)

	router, err := newRouter(routerDeps{Config: cfg, Deps: deps, Auth: svc, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return router
}

func call(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func loginToken(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := call(t, h, http.MethodPost, "/api/v1/auth/login", "", `{"username":"admin","password":"correct horse battery"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.Data.AccessToken)
	return out.Data.AccessToken
}

func displayOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Data struct {
			ID      string `json:"id"`
			Display string `json:"display"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out.Data.Display
}

func TestHealthRoutes(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/health/live", "", "").Code)
	require.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/health/ready", "", "").Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newTestServer(t)
	rr := call(t, h, http.MethodPost, "/api/v1/calculations", "", `{}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = call(t, h, http.MethodPost, "/api/v1/forms", "", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCalculationEndpoint(t *testing.T) {
	h := newTestServer(t)
	token := loginToken(t, h)

	rr := call(t, h, http.MethodPost, "/api/v1/calculations", token,
		`{"valor_contrato":"1000","valor_quitado":"200","custo_produto":"50","percentual_comissao":"10"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "R$ 650,00", displayOf(t, rr))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestFormLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)
	token := loginToken(t, h)

	rr := call(t, h, http.MethodPost, "/api/v1/forms", token, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	location := rr.Header().Get("Location")
	require.NotEmpty(t, location)
	require.Equal(t, "R$ 0,00", displayOf(t, rr))

	rr = call(t, h, http.MethodPost, location+"/input", token, `{"element_id":"valor_contrato","value":"1000"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "R$ 1.000,00", displayOf(t, rr))

	rr = call(t, h, http.MethodPost, location+"/input", token, `{"element_id":"percentual_comissao","value":"10"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "R$ 900,00", displayOf(t, rr))

	rr = call(t, h, http.MethodPost, location+"/input", token, `{"element_id":"valor_quitado","value":"200"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	// FormInputRateMax is 3 per window.
	rr = call(t, h, http.MethodPost, location+"/input", token, `{"element_id":"custo_produto","value":"50"}`)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = call(t, h, http.MethodGet, location, token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "R$ 700,00", displayOf(t, rr))

	require.Equal(t, http.StatusNoContent, call(t, h, http.MethodDelete, location, token, "").Code)
	require.Equal(t, http.StatusNotFound, call(t, h, http.MethodGet, location, token, "").Code)
}

func TestFormOpenIdempotencyKey(t *testing.T) {
	h := newTestServer(t)
	token := loginToken(t, h)

	open := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/forms", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "abc-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	require.Equal(t, http.StatusCreated, open().Code)
	require.Equal(t, http.StatusConflict, open().Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newTestServer(t)
	token := loginToken(t, h)

	require.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/api/v1/auth/me", token, "").Code)
	rr := call(t, h, http.MethodPost, "/api/v1/auth/logout", token, "")
	require.Less(t, rr.Code, 300, rr.Body.String())
	require.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/api/v1/auth/me", token, "").Code)
}

func TestLoginThrottleIgnoresForwardedFor(t *testing.T) {
	h := newTestServer(t)

	codes := make([]int, 0, 7)
	for i := 0; i < 7; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin","password":"wrong-password"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	// LoginRateLimit is 5 per minute.
	require.Equal(t, []int{401, 401, 401, 401, 401, 429, 429}, codes)
}
