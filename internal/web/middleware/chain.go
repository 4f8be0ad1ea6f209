package middleware

import (
	"net/http"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain is an ordered list of middleware. The first middleware added runs first.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a chain from the given middleware
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use appends middleware to the chain
func (c *Chain) Use(middlewares ...Middleware) *Chain {
	c.middlewares = append(c.middlewares, middlewares...)
	return c
}

// Len returns the number of middleware in the chain
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Then wraps handler with every middleware in the chain
func (c *Chain) Then(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}

// ThenFunc wraps a handler function with the chain
func (c *Chain) ThenFunc(fn http.HandlerFunc) http.Handler {
	return c.Then(fn)
}
