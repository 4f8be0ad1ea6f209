package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conduit-lang/schemaviewer/internal/web/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (*ratelimit.Decision, error) {
	return nil, errors.New("connection refused")
}

func (brokenLimiter) Close() error { return nil }

func newLimiter(t *testing.T, requests int) ratelimit.Limiter {
	t.Helper()
	limiter, err := ratelimit.NewTokenBucket(ratelimit.Config{Requests: requests, Window: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { limiter.Close() })
	return limiter
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/schema/", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Limiter: newLimiter(t, 2)})(jsonHandler(`{}`))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("192.168.1.1:5000"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("192.168.1.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("192.168.1.2:5000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	handler := RateLimit(RateLimitConfig{Limiter: brokenLimiter{}, Logger: zap.New(core)})(jsonHandler(`{}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("192.168.1.1:5000"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "rate limit check failed", logs.All()[0].Message)
}

func TestRateLimit_EmptyKey(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Limiter: brokenLimiter{},
		KeyFunc: func(*http.Request) string { return "" },
	})(jsonHandler(`{}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("192.168.1.1:5000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:1234", "10.0.0.1"},
		{"ipv6 remote addr", nil, "[::1]:1234", "::1"},
		{"no port", nil, "10.0.0.1", "10.0.0.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "10.0.0.1:1", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.9"}, "10.0.0.1:1", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFrom(tt.remote)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
