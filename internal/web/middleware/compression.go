package middleware

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// Level is the gzip compression level
	Level int
	// MinSize skips compression of responses whose Content-Length is below it
	MinSize int
	// ContentTypes lists compressible content type prefixes
	ContentTypes []string
}

// DefaultCompressionConfig compresses JSON and HTML responses of 1KB or more
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level:        gzip.DefaultCompression,
		MinSize:      1024,
		ContentTypes: []string{"application/json", "text/html", "text/plain"},
	}
}

// Compression gzips responses for clients that accept it
func Compression(config CompressionConfig) Middleware {
	pool := &sync.Pool{
		New: func() interface{} {
			gz, err := gzip.NewWriterLevel(io.Discard, config.Level)
			if err != nil {
				gz = gzip.NewWriter(io.Discard)
			}
			return gz
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Accept-Encoding")
			gzw := &gzipResponseWriter{ResponseWriter: w, pool: pool, config: config}
			defer gzw.close()

			next.ServeHTTP(gzw, r)
		})
	}
}

type gzipResponseWriter struct {
	http.ResponseWriter
	pool        *sync.Pool
	config      CompressionConfig
	gz          *gzip.Writer
	wroteHeader bool
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if statusCode == http.StatusOK && w.compressible() {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")
		w.gz = w.pool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.gz == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.gz.Write(b)
}

func (w *gzipResponseWriter) compressible() bool {
	h := w.Header()
	if h.Get("Content-Encoding") != "" {
		return false
	}
	if n, err := strconv.Atoi(h.Get("Content-Length")); err == nil && n < w.config.MinSize {
		return false
	}

	contentType := h.Get("Content-Type")
	for _, prefix := range w.config.ContentTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func (w *gzipResponseWriter) close() {
	if w.gz == nil {
		return
	}
	w.gz.Close()
	w.pool.Put(w.gz)
	w.gz = nil
}

// Hijack hands the connection over uncompressed
func (w *gzipResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.wroteHeader = true
	return hijacker.Hijack()
}
