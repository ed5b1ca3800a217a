package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/scheme/entity"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type schemeStore struct{}

func (schemeStore) Upsert(context.Context, []*entity.Scheme) error { return nil }
func (schemeStore) List(context.Context, string) ([]*entity.Scheme, error) {
	return []*entity.Scheme{{Code: "PMFBY", Name: "PMFBY"}}, nil
}

func newTestHandler(db Pinger) http.Handler {
	tokens := auth.NewTokenService(auth.Config{Secret: "router-test", TTL: time.Hour})
	return RegisterRoutes(Deps{
		DB:          db,
		CORSOrigins: []string{"http://localhost:5173"},
		Gate:        auth.NewGate(tokens, nil),
		Claims:      claim.NewHandler(claim.NewService(nil, nil), nil),
		Schemes:     scheme.NewHandler(scheme.NewService(schemeStore{}, nil), nil),
	})
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(fakePinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "connected", body.Data["database"])

	rec = httptest.NewRecorder()
	newTestHandler(fakePinger{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DB_CONNECTION_FAILED")
}

func TestMiddlewareHeaders(t *testing.T) {
	h := newTestHandler(fakePinger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/government-schemes", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 27)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/api/government-schemes", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	h := newTestHandler(fakePinger{})

	req := httptest.NewRequest(http.MethodOptions, "/api/climate-damage-claims", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodOptions, "/api/climate-damage-claims", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSCredentials(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	cases := []struct {
		name        string
		origins     []string
		origin      string
		allowOrigin string
		credentials string
	}{
		{"listed origin", []string{"http://localhost:5173"}, "http://localhost:5173", "http://localhost:5173", "true"},
		{"wildcard", []string{"*"}, "https://any.example", "https://any.example", ""},
		{"listed beside wildcard", []string{"*", "http://localhost:5173"}, "http://localhost:5173", "http://localhost:5173", "true"},
		{"unlisted", []string{"http://localhost:5173"}, "https://evil.example", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/schemes", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			CORSMiddleware(tc.origins)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tc.allowOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.credentials, rec.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestGatedRoutesRequireToken(t *testing.T) {
	h := newTestHandler(fakePinger{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/climate-damage-claims", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_TOKEN")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	cfg := ConfigFromEnv()
	assert.Equal(t, "0.0.0.0:5002", cfg.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}
