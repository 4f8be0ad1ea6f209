package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conduit-lang/schemaviewer/internal/web/ratelimit"
	"github.com/conduit-lang/schemaviewer/internal/web/response"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for the rate limiting middleware
type RateLimitConfig struct {
	Limiter ratelimit.Limiter
	// KeyFunc identifies the client; requests with an empty key are not limited
	KeyFunc func(*http.Request) string
	// Logger receives limiter failures. Requests are let through when the limiter fails.
	Logger *zap.Logger
}

// RateLimit rejects clients that exceed the limiter's allowance with 429
func RateLimit(config RateLimitConfig) Middleware {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := config.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limit check failed", zap.String("client", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retry := decision.RetryAfter(time.Now())
				h.Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
				response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then the peer address
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
