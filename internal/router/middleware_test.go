package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/handler"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(handler.ContextRequestIDKey))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(requestIDHeader)
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestTenantFromHost(t *testing.T) {
	cases := []struct {
		host, base, want string
	}{
		{"alpha.blogs.test", "blogs.test", "alpha"},
		{"Alpha.Blogs.Test:8080", "blogs.test", "alpha"},
		{"alpha.blogs.test", ".blogs.test.", "alpha"},
		{"blogs.test", "blogs.test", ""},
		{"a.b.blogs.test", "blogs.test", ""},
		{"alpha.other.test", "blogs.test", ""},
		{"alpha.blogs.test", "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tenantFromHost(tc.host, tc.base), "%s / %s", tc.host, tc.base)
	}
}

func TestTenantMiddlewareResolutionOrder(t *testing.T) {
	r := gin.New()
	r.Use(TenantMiddleware(config.TenantConfig{
		Default:    "main",
		BaseDomain: "blogs.test",
		Header:     "X-Tangerine-Tenant",
	}))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, handler.TenantFrom(c))
	})

	serve := func(host, header string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host
		if header != "" {
			req.Header.Set("X-Tangerine-Tenant", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Body.String()
	}

	assert.Equal(t, "beta", serve("alpha.blogs.test", " Beta "))
	assert.Equal(t, "alpha", serve("alpha.blogs.test", ""))
	assert.Equal(t, "main", serve("localhost:8080", ""))
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.err
}

func rateLimitedEngine(limiter RateLimiter, cfg config.RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(handler.ContextTenantKey, "alpha")
		c.Next()
	})
	r.POST("/comments", CommentRateLimit(limiter, cfg), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestCommentRateLimit(t *testing.T) {
	cfg := config.RateLimitConfig{CommentsPerWindow: 3, WindowSeconds: 90}

	t.Run("allowed", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: true}
		w := httptest.NewRecorder()
		rateLimitedEngine(limiter, cfg).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comments", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, []string{"comment_rate:alpha:192.0.2.1"}, limiter.keys)
	})

	t.Run("blocked", func(t *testing.T) {
		w := httptest.NewRecorder()
		rateLimitedEngine(&fakeLimiter{}, cfg).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comments", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "90", w.Header().Get("Retry-After"))
	})

	t.Run("limiter failure lets the request through", func(t *testing.T) {
		w := httptest.NewRecorder()
		limiter := &fakeLimiter{err: errors.New("redis down")}
		rateLimitedEngine(limiter, cfg).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comments", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		limiter := &fakeLimiter{}
		w := httptest.NewRecorder()
		rateLimitedEngine(limiter, config.RateLimitConfig{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comments", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, limiter.keys)
	})
}
