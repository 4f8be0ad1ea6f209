package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/conduit-lang/schemaviewer/internal/cli/config"
	"github.com/conduit-lang/schemaviewer/internal/cli/ui"
	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"github.com/conduit-lang/schemaviewer/internal/viewer"
	"github.com/conduit-lang/schemaviewer/internal/watch"
	"github.com/conduit-lang/schemaviewer/internal/web/cache"
	"github.com/conduit-lang/schemaviewer/internal/web/middleware"
	"github.com/conduit-lang/schemaviewer/internal/web/profiling"
	"github.com/conduit-lang/schemaviewer/internal/web/ratelimit"
	"github.com/conduit-lang/schemaviewer/internal/web/router"
	"github.com/conduit-lang/schemaviewer/internal/web/server"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type serveOptions struct {
	host   string
	port   int
	prefix string
	watch  bool
}

// NewServeCommand creates the serve command
func NewServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema viewer over HTTP",
		Long: `Start an HTTP server exposing the viewer page and its JSON API below the mount prefix.

The server refuses to start when the registry check reports errors. It stops
gracefully on SIGINT or SIGTERM.

With --watch, edits to the manifests rebuild the registry and open viewer pages
refresh themselves. A reload whose check fails keeps the previous schema.`,
		Example: `  schemaviewer serve --demo
  schemaviewer serve --watch -m models/
  schemaviewer serve --port 9000 --prefix /schema -m models/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = opts.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = opts.port
			}
			if cmd.Flags().Changed("prefix") {
				cfg.Server.MountPrefix = opts.prefix
			}
			if cmd.Flags().Changed("watch") {
				cfg.Schema.Watch = opts.watch
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return runServe(cmd, cfg, global.noColor)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "host to bind (overrides server.host)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "URL prefix the viewer is mounted under (overrides server.mount_prefix)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload manifests when they change (overrides schema.watch)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, noColor bool) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg.Schema)
	if err != nil {
		return err
	}
	if issues := registry.Check(); schema.HasErrors(issues) {
		printIssues(cmd.ErrOrStderr(), issues, noColor)
		return fmt.Errorf("registry check failed with %d issue(s)", len(issues))
	}

	svc, err := openServices(cmd.Context(), cfg, registry, logger)
	if err != nil {
		return err
	}
	handler := newServeHandler(cfg, svc)

	srv, err := server.New(handler,
		server.WithAddress(cfg.Server.Address()),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
	)
	if err != nil {
		svc.Close()
		return err
	}

	shutdown := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	shutdown.RegisterHook(func(ctx context.Context) error {
		return svc.Close()
	})
	shutdown.RegisterHook(func(ctx context.Context) error {
		// Sync fails on terminals; nothing is lost
		_ = logger.Sync()
		return nil
	})

	if err := srv.Listen(); err != nil {
		svc.Close()
		return err
	}
	color.New(color.FgGreen, color.Bold).Fprint(cmd.OutOrStdout(), "Schema viewer running at ")
	fmt.Fprintln(cmd.OutOrStdout(), srv.URL(cfg.Server.MountPrefix+"/"))
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%d models registered", len(registry.Models())), noColor))
	if svc.limiter != nil {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Info(fmt.Sprintf("API limited to %d requests per %s per client", cfg.RateLimit.Requests, cfg.RateLimit.Window), noColor))
	}
	if svc.watcher != nil {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Info("Watching manifests for changes", noColor))
	}

	return shutdown.Run(cmd.Context())
}

// services are the long-lived collaborators of the HTTP handler. Every field but viewer
// and logger is optional.
type services struct {
	viewer  *viewer.Handler
	store   cache.Store
	limiter ratelimit.Limiter
	reloads *watch.ReloadServer
	watcher *watch.Watcher
	logger  *zap.Logger
}

// openServices opens what cfg asks for. On error everything opened so far is closed.
func openServices(ctx context.Context, cfg *config.Config, registry *schema.Registry, logger *zap.Logger) (*services, error) {
	svc := &services{
		viewer: viewer.NewHandler(registry, viewer.Options{Builtins: cfg.Schema.BuiltinNamespaces, Logger: logger}),
		logger: logger,
	}

	var err error
	if svc.store, err = openCache(ctx, cfg.Cache); err != nil {
		return nil, err
	}
	if svc.limiter, err = openLimiter(ctx, cfg.RateLimit, cfg.Cache); err != nil {
		svc.Close()
		return nil, err
	}
	if cfg.Schema.Watch {
		svc.reloads = watch.NewReloadServer(cfg.Server.CORSOrigins, logger)
		svc.watcher, err = startWatcher(ctx, &reloader{
			schema:  cfg.Schema,
			handler: svc.viewer,
			store:   svc.store,
			reloads: svc.reloads,
			logger:  logger,
		})
		if err != nil {
			svc.Close()
			return nil, err
		}
	}
	return svc, nil
}

// Close stops the watcher before closing the stores it reloads into
func (s *services) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Stop())
	}
	if s.reloads != nil {
		s.reloads.Close()
	}
	if s.limiter != nil {
		errs = append(errs, s.limiter.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

// newServeHandler builds the router with the middleware stack and the viewer routes.
// The rate limiter runs before the cache so hits are counted. Compression wraps ETag so
// tags are computed on the uncompressed body, and ETag wraps the response cache so hits
// are tagged too.
func newServeHandler(cfg *config.Config, svc *services) http.Handler {
	r := router.NewRouter()
	srv := cfg.Server
	api := middleware.PathPrefix(srv.MountPrefix + "/api/")
	apiRead := middleware.All(api, middleware.SafeMethod)
	logger := svc.logger

	cors := middleware.DefaultCORSConfig()
	if len(srv.CORSOrigins) > 0 {
		cors.AllowedOrigins = srv.CORSOrigins
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
		middleware.CORS(cors),
	)
	if svc.limiter != nil {
		r.Use(middleware.Conditional(api, middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: svc.limiter,
			Logger:  logger,
		})))
	}
	if srv.Compression {
		r.Use(middleware.Compression(middleware.DefaultCompressionConfig()))
	}
	r.Use(middleware.Conditional(apiRead, middleware.ETag()))
	if svc.store != nil {
		r.Use(middleware.Conditional(apiRead, cache.Middleware(cache.MiddlewareConfig{
			Store:  svc.store,
			TTL:    cfg.Cache.TTL,
			Scope:  svc.viewer.Fingerprint,
			Logger: logger,
		})))
	}

	svc.viewer.Register(r, srv.MountPrefix)
	if svc.reloads != nil {
		r.Get(srv.MountPrefix+"/ws/", svc.reloads.HandleWebSocket).Named("schema_viewer:reload")
	}
	if srv.Profiling {
		profiling.Mount(r, profiling.DefaultConfig())
		logger.Warn("profiling endpoints enabled", zap.String("path", profiling.DefaultConfig().Path))
	}

	logger.Debug("routes registered", zap.String("routes", r.RouteList()))
	return r
}

// openCache opens the configured response cache. The middleware scopes keys by the
// registry fingerprint, so instances serving different schemas can share a Redis.
func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	store, err := cache.New(ctx, cache.Config{
		Backend: cache.Backend(cfg.Backend),
		TTL:     cfg.TTL,
		Prefix:  cfg.Prefix,
		Redis: cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Backend, err)
	}
	return store, nil
}

// openLimiter opens the API rate limiter, or returns nil when rate limiting is off. The
// redis backend connects to the server configured for the cache.
func openLimiter(ctx context.Context, cfg config.RateLimitConfig, cacheCfg config.CacheConfig) (ratelimit.Limiter, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	limits := ratelimit.Config{
		Requests: cfg.Requests,
		Window:   cfg.Window,
		Prefix:   cacheCfg.Prefix + "ratelimit:",
	}
	if cfg.Backend != "redis" {
		limiter, err := ratelimit.NewTokenBucket(limits)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cacheCfg.Redis.Addr,
		Password: cacheCfg.Redis.Password,
		DB:       cacheCfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect rate limiter to redis at %s: %w", cacheCfg.Redis.Addr, err)
	}
	limiter, err := ratelimit.NewRedisLimiter(client, limits)
	if err != nil {
		client.Close()
		return nil, err
	}
	return limiter, nil
}

// newLogger builds the zap logger described by the log config
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("schemaviewer"), nil
}
