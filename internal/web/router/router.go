package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/conduit-lang/schemaviewer/internal/web/middleware"
	"github.com/conduit-lang/schemaviewer/internal/web/response"
	"github.com/go-chi/chi/v5"
)

// Router wraps a chi router and records every registered route for introspection
type Router struct {
	mux    chi.Router
	chain  *middleware.Chain
	routes []*RouteInfo
}

// RouteInfo describes a registered route
type RouteInfo struct {
	Method     string
	Pattern    string
	Name       string
	Parameters []RouteParameter
}

// RouteParameter describes a path parameter of a route
type RouteParameter struct {
	Name     string
	Required bool
}

// NewRouter creates a router whose 404 and 405 responses are JSON errors
func NewRouter() *Router {
	r := &Router{
		mux:   chi.NewRouter(),
		chain: middleware.NewChain(),
	}
	r.mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, "")
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.MethodNotAllowed(w, http.MethodGet, http.MethodHead)
	})
	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware. It must be called before any route is registered.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.chain.Use(m)
		r.mux.Use(m)
	}
}

// Middlewares returns the number of middleware in use
func (r *Router) Middlewares() int {
	return r.chain.Len()
}

// Get registers a GET route. HEAD requests are served by the same handler.
func (r *Router) Get(pattern string, handler http.HandlerFunc) *RouteInfo {
	r.mux.Get(pattern, handler)
	r.mux.Head(pattern, handler)
	return r.record(http.MethodGet, pattern)
}

// Mount attaches a sub-handler under pattern
func (r *Router) Mount(pattern string, handler http.Handler) {
	r.mux.Mount(pattern, handler)
	r.record("*", pattern+"/*")
}

// NotFound replaces the 404 handler
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// MethodNotAllowed replaces the 405 handler
func (r *Router) MethodNotAllowed(handler http.HandlerFunc) {
	r.mux.MethodNotAllowed(handler)
}

func (r *Router) record(method, pattern string) *RouteInfo {
	info := &RouteInfo{
		Method:     method,
		Pattern:    pattern,
		Parameters: extractParameters(pattern),
	}
	r.routes = append(r.routes, info)
	return info
}

// Named sets the route's name
func (info *RouteInfo) Named(name string) *RouteInfo {
	info.Name = name
	return info
}

// GetRoutes returns every registered route in registration order
func (r *Router) GetRoutes() []*RouteInfo {
	return r.routes
}

// RouteList formats the registered routes as an aligned table
func (r *Router) RouteList() string {
	var b strings.Builder
	for _, info := range r.routes {
		line := fmt.Sprintf("%-6s %s", info.Method, info.Pattern)
		if info.Name != "" {
			line = fmt.Sprintf("%-60s %s", line, info.Name)
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// extractParameters lists the {name} segments of a pattern
func extractParameters(pattern string) []RouteParameter {
	params := make([]RouteParameter, 0)
	for _, part := range strings.Split(pattern, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := strings.Trim(part, "{}")
			// chi allows {name:regexp}
			if i := strings.IndexByte(name, ':'); i >= 0 {
				name = name[:i]
			}
			params = append(params, RouteParameter{Name: name, Required: true})
		}
	}
	return params
}
