package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/darkproduction721/AI-Agent-Studio/pkg/config"
)

func TestRequestID(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodGet, "/health", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "caller-id-1")
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, "caller-id-1", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{"allowed dev origin", "http://localhost:5173", "http://localhost:5173"},
		{"unknown origin", "https://evil.example.com", ""},
		{"no origin", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			ts.handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/agents/engineering-backend-architect/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Empty(t, ts.backend.calls)
}

func TestRateLimit_Global(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = config.RateLimit{Requests: 2, Window: time.Hour}
	})

	for i := 0; i < 2; i++ {
		w, _ := ts.do(t, http.MethodGet, "/api/agents", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, body := ts.do(t, http.MethodGet, "/api/agents", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests from this IP, please try again later.", body["error"])

	// Paths outside /api are not limited.
	w, _ = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_Chat(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Server.ChatRateLimit = config.RateLimit{Requests: 1, Window: time.Hour}
	})

	path := "/api/agents/engineering-backend-architect/chat"
	w, _ := ts.do(t, http.MethodPost, path, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, body := ts.do(t, http.MethodPost, path, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many chat requests, please slow down.", body["error"])

	// The chat limiter does not affect other routes.
	w, _ = ts.do(t, http.MethodGet, "/api/agents", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecover(t *testing.T) {
	s := &Server{config: config.DefaultConfig(), logger: zap.NewNop()}
	handler := s.recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
}

func TestIPRateLimiter(t *testing.T) {
	l := newIPRateLimiter(config.RateLimit{Requests: 3, Window: 3 * time.Second})
	require.NotNil(t, l)

	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"), "clients have separate buckets")

	// One token refills per second.
	now = now.Add(time.Second)
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
}

func TestIPRateLimiter_Disabled(t *testing.T) {
	assert.Nil(t, newIPRateLimiter(config.RateLimit{}))
	assert.Nil(t, newIPRateLimiter(config.RateLimit{Requests: 5}))
}

func TestIPRateLimiter_Prune(t *testing.T) {
	l := newIPRateLimiter(config.RateLimit{Requests: 1, Window: time.Minute})
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	l.prune(now)

	assert.Empty(t, l.visitors)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(req))
}
