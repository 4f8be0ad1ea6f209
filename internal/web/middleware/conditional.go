package middleware

import (
	"net/http"
	"strings"
)

// Predicate selects the requests a conditional middleware runs for
type Predicate func(*http.Request) bool

// Conditional runs middleware for requests matching match; the rest go straight to next
func Conditional(match Predicate, middleware Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		wrapped := middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := next
			if match(r) {
				h = wrapped
			}
			h.ServeHTTP(w, r)
		})
	}
}

// PathPrefix selects requests below prefix
func PathPrefix(prefix string) Predicate {
	return func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, prefix)
	}
}

// SafeMethod selects GET and HEAD requests
func SafeMethod(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// All selects requests every predicate selects
func All(predicates ...Predicate) Predicate {
	return func(r *http.Request) bool {
		for _, match := range predicates {
			if !match(r) {
				return false
			}
		}
		return true
	}
}
