// Package config loads schemaviewer settings from schemaviewer.yml, SCHEMAVIEWER_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the base name of the config file looked up in the working directory
const FileName = "schemaviewer"

// EnvPrefix prefixes every environment override, e.g. SCHEMAVIEWER_SERVER_PORT
const EnvPrefix = "SCHEMAVIEWER"

// Config is the full schemaviewer configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Schema    SchemaConfig    `mapstructure:"schema" yaml:"schema"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	MountPrefix     string        `mapstructure:"mount_prefix" yaml:"mount_prefix"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	Compression     bool          `mapstructure:"compression" yaml:"compression"`
	// Profiling mounts pprof under /debug/pprof
	Profiling       bool          `mapstructure:"profiling" yaml:"profiling"`
}

// SchemaConfig selects which apps populate the registry
type SchemaConfig struct {
	// Manifests are YAML files or directories of them
	Manifests         []string `mapstructure:"manifests" yaml:"manifests"`
	BuiltinApps       bool     `mapstructure:"builtin_apps" yaml:"builtin_apps"`
	Demo              bool     `mapstructure:"demo" yaml:"demo"`
	BuiltinNamespaces []string `mapstructure:"builtin_namespaces" yaml:"builtin_namespaces"`
	// Watch reloads manifests on change while serving
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// CacheConfig configures the API response cache. It is off by default so every API
// response is built from the live registry.
type CacheConfig struct {
	// Backend is none, memory or redis
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Prefix  string        `mapstructure:"prefix" yaml:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

// RateLimitConfig throttles API requests per client address. The redis backend shares
// counters through the server configured under cache.redis.
type RateLimitConfig struct {
	// Requests per Window; zero disables rate limiting
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
	// Backend is memory or redis
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// Enabled reports whether API requests are throttled
func (c RateLimitConfig) Enabled() bool {
	return c.Requests > 0
}

// RedisConfig locates the Redis server of the redis cache backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Address returns host:port
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mount_prefix", "/__schema")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.compression", true)
	v.SetDefault("server.profiling", false)

	v.SetDefault("schema.manifests", []string{})
	v.SetDefault("schema.builtin_apps", true)
	v.SetDefault("schema.demo", false)
	v.SetDefault("schema.watch", false)
	v.SetDefault("schema.builtin_namespaces", []string{"admin", "auth", "contenttypes", "sessions", "messages", "staticfiles"})

	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.prefix", "schemaviewer:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("rate_limit.requests", 0)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.backend", "memory")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Default returns the configuration used when no file or environment override exists
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads the configuration. path names an explicit config file; when empty,
// schemaviewer.yml or schemaviewer.yaml in the working directory is used if present.
// A .env file in the working directory is loaded first without overriding variables
// that are already set.
func Load(path string) (*Config, error) {
	// A missing .env file is not an error
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup
func Validate(cfg *Config) error {
	prefix := cfg.Server.MountPrefix
	if prefix != "" {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("server.mount_prefix must start with '/', got: %s", prefix)
		}
		if strings.HasSuffix(prefix, "/") {
			return fmt.Errorf("server.mount_prefix must not end with '/', got: %s", prefix)
		}
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}
	switch cfg.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be none, memory or redis, got: %s", cfg.Cache.Backend)
	}
	if cfg.RateLimit.Enabled() {
		switch cfg.RateLimit.Backend {
		case "memory", "redis":
		default:
			return fmt.Errorf("rate_limit.backend must be memory or redis, got: %s", cfg.RateLimit.Backend)
		}
		if cfg.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive, got: %s", cfg.RateLimit.Window)
		}
	}
	if cfg.RateLimit.Requests < 0 {
		return fmt.Errorf("rate_limit.requests must not be negative, got: %d", cfg.RateLimit.Requests)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got: %s", cfg.Log.Level)
	}
	return nil
}

// Save writes cfg as YAML to path
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists reports whether a config file is present in the working directory
func Exists() bool {
	for _, name := range []string{FileName + ".yml", FileName + ".yaml"} {
		if _, err := os.Stat(name); err == nil {
			return true
		}
	}
	return false
}
