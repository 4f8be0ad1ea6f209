// Package server runs the viewer's HTTP listener and drains it on shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	defaultAddress        = "localhost:8000"
	defaultMaxHeaderBytes = 1 << 20
)

// Server binds an address up front so the real address is known before serving,
// which matters when the configured port is 0
type Server struct {
	address  string
	http     *http.Server
	listener net.Listener
}

// Option configures a Server
type Option func(*Server)

// WithAddress sets the listen address, e.g. "localhost:8000" or "127.0.0.1:0"
func WithAddress(address string) Option {
	return func(s *Server) {
		s.address = address
	}
}

// WithTimeouts sets the read, write and idle timeouts. Zero values keep the defaults.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.http.ReadTimeout = read
		}
		if write > 0 {
			s.http.WriteTimeout = write
		}
		if idle > 0 {
			s.http.IdleTimeout = idle
		}
	}
}

// New creates a server for handler. It does not bind the address.
func New(handler http.Handler, opts ...Option) (*Server, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	s := &Server{
		address: defaultAddress,
		http: &http.Server{
			Handler:           handler,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			MaxHeaderBytes:    defaultMaxHeaderBytes,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.address == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	s.http.Addr = s.address
	return s, nil
}

// Listen binds the address. Calling it again is a no-op.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.listener = listener
	return nil
}

// Serve accepts connections until the server is shut down, binding first if needed.
// It returns http.ErrServerClosed after a shutdown.
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.http.Serve(s.listener)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Addr returns the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.address
}

// URL returns the http URL of path on this server
func (s *Server) URL(path string) string {
	return "http://" + s.Addr() + path
}
