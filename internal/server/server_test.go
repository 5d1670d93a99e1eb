package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catalog-api/internal/config"
	"catalog-api/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "server-test-secret"

type stubHealth map[string]string

func (s stubHealth) Health(context.Context) map[string]string {
	return s
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "test"},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute},
		JWT:       config.JWTConfig{WriteRoles: []string{"admin", "editor"}},
	}
}

func memoryDeps() Dependencies {
	store := memory.NewStore()
	return Dependencies{Repos: store.Repositories(), Tx: store}
}

func request(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         HealthChecker
		wantStatus int
		wantBody   string
	}{
		{"no database", nil, http.StatusOK, "ok"},
		{"database up", stubHealth{"status": "up"}, http.StatusOK, "ok"},
		{"database down", stubHealth{"status": "down", "error": "connection refused"}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := memoryDeps()
			deps.DB = tt.db

			w := request(t, NewRouter(testConfig(), zap.NewNop(), deps), http.MethodGet, "/health", "", nil)
			require.Equal(t, tt.wantStatus, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["status"])
		})
	}
}

func TestHealthReportsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	deps := memoryDeps()
	deps.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = deps.Redis.Close() })

	w := request(t, NewRouter(testConfig(), zap.NewNop(), deps), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Redis map[string]string `json:"redis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "up", body.Redis["status"])
}

func TestRouterServesCatalog(t *testing.T) {
	router := NewRouter(testConfig(), zap.NewNop(), memoryDeps())

	w := request(t, router, http.MethodPost, "/api/v1/categories", `{"name":"Books"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Content-Type"))

	w = request(t, router, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Books")

	w = request(t, router, http.MethodPost, "/api/v1/categories", `name=Books`, map[string]string{"Content-Type": "text/plain"})
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouterProtectsWrites(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = testSecret
	router := NewRouter(cfg, zap.NewNop(), memoryDeps())

	sign := func(role string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "user-1",
			"role": role,
			"exp":  time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return "Bearer " + token
	}

	w := request(t, router, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(t, router, http.MethodPost, "/api/v1/brands", `{"name":"Acme"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(t, router, http.MethodPost, "/api/v1/brands", `{"name":"Acme"}`,
		map[string]string{"Authorization": sign("viewer")})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(t, router, http.MethodPost, "/api/v1/brands", `{"name":"Acme"}`,
		map[string]string{"Authorization": sign("editor")})
	assert.Equal(t, http.StatusCreated, w.Code)

	// health stays outside the guarded group
	w = request(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRateLimits(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RateLimit.Requests = 2

	deps := memoryDeps()
	deps.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = deps.Redis.Close() })

	router := NewRouter(cfg, zap.NewNop(), deps)

	for i := 0; i < 2; i++ {
		w := request(t, router, http.MethodGet, "/api/v1/brands", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := request(t, router, http.MethodGet, "/api/v1/brands", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	mr.FastForward(time.Minute + time.Second)

	w = request(t, router, http.MethodGet, "/api/v1/brands", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerCloseReleasesResources(t *testing.T) {
	var closed bool
	srv := NewServer(testConfig(), zap.NewNop(), memoryDeps(), func() error {
		closed = true
		return nil
	})
	assert.Equal(t, ":0", srv.Addr)
	require.NoError(t, srv.Close())
	assert.True(t, closed)

	failing := NewServer(testConfig(), zap.NewNop(), memoryDeps(), func() error {
		return errors.New("close failed")
	})
	assert.Error(t, failing.Close())
}
