package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://docs.example.com", "*.internal.test"}

	tests := []struct {
		name        string
		method      string
		origin      string
		wantOrigin  string
		wantStatus  int
		wantMethods string
	}{
		{"allowed origin", http.MethodGet, "https://docs.example.com", "https://docs.example.com", http.StatusOK, ""},
		{"subdomain", http.MethodGet, "https://a.internal.test", "https://a.internal.test", http.StatusOK, ""},
		{"other origin", http.MethodGet, "https://evil.test", "", http.StatusOK, ""},
		{"no origin", http.MethodGet, "", "", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "https://docs.example.com", "https://docs.example.com", http.StatusNoContent, "GET, HEAD, OPTIONS"},
		{"preflight other origin", http.MethodOptions, "https://evil.test", "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORS(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/schema/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantMethods, rec.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}
