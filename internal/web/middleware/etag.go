package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// ETag buffers successful GET and HEAD responses, tags them with a strong ETag and answers
// 304 Not Modified when the request's If-None-Match matches
func ETag() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bufferedWriter{header: make(http.Header), statusCode: http.StatusOK}
			next.ServeHTTP(buf, r)

			for k, v := range buf.header {
				w.Header()[k] = v
			}

			if buf.statusCode == http.StatusOK {
				etag := GenerateETag(buf.body.Bytes())
				w.Header().Set("ETag", etag)
				if MatchesETag(etag, ParseIfNoneMatch(r.Header.Get("If-None-Match"))) {
					w.Header().Del("Content-Length")
					w.Header().Del("Content-Type")
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}

			w.WriteHeader(buf.statusCode)
			w.Write(buf.body.Bytes())
		})
	}
}

// GenerateETag returns a strong ETag for content
func GenerateETag(content []byte) string {
	sum := sha256.Sum256(content)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// ParseIfNoneMatch splits an If-None-Match header into its entity tags
func ParseIfNoneMatch(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if header == "*" {
		return []string{"*"}
	}

	var etags []string
	for _, part := range strings.Split(header, ",") {
		if part = strings.TrimSpace(part); part != "" {
			etags = append(etags, part)
		}
	}
	return etags
}

// MatchesETag reports whether etag weakly matches any of etags
func MatchesETag(etag string, etags []string) bool {
	for _, e := range etags {
		if e == "*" || strings.TrimPrefix(e, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

type bufferedWriter struct {
	header      http.Header
	body        bytes.Buffer
	statusCode  int
	wroteHeader bool
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(statusCode int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.statusCode = statusCode
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.WriteHeader(http.StatusOK)
	return b.body.Write(p)
}
