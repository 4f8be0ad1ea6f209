package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// HeaderCache reports whether a response came from the cache
const HeaderCache = "X-Cache"

// MiddlewareConfig configures the response cache middleware
type MiddlewareConfig struct {
	Store Store
	// TTL of stored responses; zero uses the store default
	TTL time.Duration
	// Scope, when set, is prepended to every key. Changing its result orphans the
	// entries stored under the previous scope.
	Scope  func() string
	Logger *zap.Logger
}

type entry struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Middleware caches 200 responses to GET requests. Store errors are logged and the
// request is served uncached.
func Middleware(config MiddlewareConfig) func(http.Handler) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := RequestKey(r)
			if config.Scope != nil {
				key = config.Scope() + ":" + key
			}

			data, err := config.Store.Get(ctx, key)
			if err == nil {
				var cached entry
				if err := json.Unmarshal(data, &cached); err == nil {
					w.Header().Set("Content-Type", cached.ContentType)
					w.Header().Set("Content-Length", strconv.Itoa(len(cached.Body)))
					w.Header().Set(HeaderCache, "HIT")
					w.WriteHeader(http.StatusOK)
					w.Write(cached.Body)
					return
				}
				logger.Warn("discarding undecodable cache entry", zap.String("key", key))
			} else if !errors.Is(err, ErrMiss) {
				logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
			}

			rec := &recorder{ResponseWriter: w, statusCode: http.StatusOK}
			w.Header().Set(HeaderCache, "MISS")
			next.ServeHTTP(rec, r)

			if rec.statusCode != http.StatusOK {
				return
			}
			data, err = json.Marshal(entry{ContentType: rec.Header().Get("Content-Type"), Body: rec.body.Bytes()})
			if err != nil {
				return
			}
			if err := config.Store.Set(ctx, key, data, config.TTL); err != nil {
				logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

// recorder copies the body aside while writing it through
type recorder struct {
	http.ResponseWriter
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *recorder) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
