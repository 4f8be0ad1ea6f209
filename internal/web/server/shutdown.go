package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownHook runs after the server stopped accepting requests
type ShutdownHook func(ctx context.Context) error

// ShutdownConfig holds graceful shutdown configuration
type ShutdownConfig struct {
	// Timeout bounds the time spent draining requests and running hooks
	Timeout time.Duration
	// Signals trigger a shutdown; defaults to SIGINT and SIGTERM
	Signals []os.Signal
	Logger  *zap.Logger
}

// DefaultShutdownConfig returns the default shutdown configuration
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Timeout: 10 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Logger:  zap.NewNop(),
	}
}

// GracefulShutdown runs a server until a signal arrives or its context ends, then drains it
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	signals []os.Signal
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []ShutdownHook

	once sync.Once
	done chan struct{}
	err  error
}

// NewGracefulShutdown creates a shutdown handler for server
func NewGracefulShutdown(server *Server, config *ShutdownConfig) *GracefulShutdown {
	if config == nil {
		config = DefaultShutdownConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	signals := config.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	return &GracefulShutdown{
		server:  server,
		timeout: config.Timeout,
		signals: signals,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// RegisterHook adds a hook run during shutdown, in registration order
func (gs *GracefulShutdown) RegisterHook(hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, hook)
}

// Run serves until ctx is cancelled, a signal arrives or the server fails
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	if err := gs.server.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("server listening", zap.String("addr", gs.server.Addr()))
		if err := gs.server.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, gs.signals...)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		gs.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		gs.logger.Info("context done, shutting down")
	case err := <-errCh:
		return err
	}
	return gs.Shutdown()
}

// Shutdown drains the server and runs the hooks. Only the first call does any work.
func (gs *GracefulShutdown) Shutdown() error {
	gs.once.Do(func() {
		defer close(gs.done)

		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		if err := gs.server.Shutdown(ctx); err != nil {
			gs.err = fmt.Errorf("server shutdown error: %w", err)
			gs.logger.Error("server shutdown failed", zap.Error(err))
		}

		gs.mu.Lock()
		hooks := append([]ShutdownHook(nil), gs.hooks...)
		gs.mu.Unlock()

		for i, hook := range hooks {
			if err := hook(ctx); err != nil {
				gs.logger.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(err))
			}
		}

		if gs.err == nil {
			gs.logger.Info("server stopped")
		}
	})

	<-gs.done
	return gs.err
}

// Wait blocks until shutdown has completed
func (gs *GracefulShutdown) Wait() error {
	<-gs.done
	return gs.err
}
