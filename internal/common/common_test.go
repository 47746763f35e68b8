package common

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/patrickmn/go-cache"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded header ignored",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 70.41.3.18"},
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "real ip header ignored",
			headers:    map[string]string{"X-Real-IP": "198.51.100.2"},
			remoteAddr: "192.0.2.1:1234",
			want:       "192.0.2.1",
		},
		{
			name:       "remote addr",
			remoteAddr: "198.51.100.3:8080",
			want:       "198.51.100.3",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "198.51.100.4",
			want:       "198.51.100.4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			req.RemoteAddr = tt.remoteAddr
			require.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, BearerToken(req))
	req.Header.Set("Authorization", "bearer abc.def")
	require.Equal(t, "abc.def", BearerToken(req))
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	require.Empty(t, BearerToken(req))
}

type loginPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,max=256"`
}

func TestDecodeJSONValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"admin"}`))
	var payload loginPayload
	err := DecodeJSON(req, &payload)
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Equal(t, map[string]string{"password": "failed on required"}, appErr.Details)

	rec := httptest.NewRecorder()
	WriteError(rec, err)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeJSONMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	var payload loginPayload
	err := DecodeJSON(req, &payload)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "BAD_REQUEST", appErr.Code)
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("redis: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "INTERNAL", body.Error.Code)
	require.Equal(t, "internal error", body.Error.Message)
}

func TestIdemRejectsReplay(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	for name, idem := range map[string]Idem{
		"redis": {R: client, TTL: time.Minute},
		"local": {Local: cache.New(time.Minute, time.Minute), TTL: time.Minute},
	} {
		t.Run(name, func(t *testing.T) {
			calls := 0
			handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusCreated)
			}))

			send := func(subject string) int {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/forms", nil)
				req.Header.Set(IdempotencyHeader, "abc")
				req = req.WithContext(WithSubject(context.Background(), subject))
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				return rec.Code
			}

			require.Equal(t, http.StatusCreated, send("admin"))
			require.Equal(t, http.StatusConflict, send("admin"))
			require.Equal(t, http.StatusCreated, send("other"))
			require.Equal(t, 2, calls)
		})
	}
}

func TestSubjectRoundTrip(t *testing.T) {
	_, ok := Subject(context.Background())
	require.False(t, ok)
	got, ok := Subject(WithSubject(context.Background(), "admin"))
	require.True(t, ok)
	require.Equal(t, "admin", got)
}
