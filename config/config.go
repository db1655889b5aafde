package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adeilh/bearer/auth"
	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"
)

// Store backends understood by bearerd.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds runtime settings for bearerd.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// EnableIssue exposes POST /v1/authenticators. Leave it off unless the
	// daemon sits behind something that has already verified the login.
	EnableIssue bool `yaml:"enable_issue"`
}

type AuthConfig struct {
	HeaderName  string        `yaml:"header_name"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Expiry      time.Duration `yaml:"expiry"`
	// IDFormat is "random" (32 bytes, base64url) or "uuid".
	IDFormat string `yaml:"id_format"`
}

type StoreConfig struct {
	Backend      string        `yaml:"backend"`
	Prefix       string        `yaml:"prefix"`
	RedisURL     string        `yaml:"redis_url"`
	PostgresDSN  string        `yaml:"postgres_dsn"`
	ReapInterval time.Duration `yaml:"reap_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	settings := auth.DefaultSettings()
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			HeaderName:  settings.HeaderName,
			IdleTimeout: settings.IdleTimeout,
			Expiry:      settings.Expiry,
			IDFormat:    "random",
		},
		Store: StoreConfig{
			Backend:      BackendMemory,
			Prefix:       "authenticator",
			ReapInterval: auth.DefaultReapInterval,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads the YAML file at path (skipped when path is empty) over the
// defaults, applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(bytes.NewReader(raw), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg Config) Config {
	cfg.Server.Address = firstNonEmpty(os.Getenv("BEARER_ADDR"), cfg.Server.Address)
	cfg.Server.EnableIssue = boolFromEnv("BEARER_ENABLE_ISSUE", cfg.Server.EnableIssue)
	cfg.Auth.HeaderName = firstNonEmpty(os.Getenv("BEARER_HEADER_NAME"), cfg.Auth.HeaderName)
	cfg.Auth.IdleTimeout = durationFromEnv("BEARER_IDLE_TIMEOUT", cfg.Auth.IdleTimeout)
	cfg.Auth.Expiry = durationFromEnv("BEARER_EXPIRY", cfg.Auth.Expiry)
	cfg.Auth.IDFormat = firstNonEmpty(os.Getenv("BEARER_ID_FORMAT"), cfg.Auth.IDFormat)
	cfg.Store.Backend = firstNonEmpty(os.Getenv("BEARER_STORE"), cfg.Store.Backend)
	cfg.Store.RedisURL = firstNonEmpty(os.Getenv("REDIS_URL"), cfg.Store.RedisURL)
	cfg.Store.PostgresDSN = firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_URL"), cfg.Store.PostgresDSN)
	cfg.Store.ReapInterval = durationFromEnv("BEARER_REAP_INTERVAL", cfg.Store.ReapInterval)
	cfg.Log.Level = firstNonEmpty(os.Getenv("BEARER_LOG_LEVEL"), cfg.Log.Level)
	return cfg
}

// Validate checks backend requirements and the authenticator settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("config: redis backend requires store.redis_url"))
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("config: postgres backend requires store.postgres_dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store backend %q", c.Store.Backend))
	}
	switch c.Auth.IDFormat {
	case "random", "uuid":
	default:
		errs = append(errs, fmt.Errorf("config: unknown id format %q", c.Auth.IDFormat))
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("config: unknown log level %q", c.Log.Level))
	}
	if err := c.Auth.Settings().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

// Settings converts the auth section into auth.Settings.
func (c AuthConfig) Settings() auth.Settings {
	return auth.Settings{}.
		WithHeaderName(c.HeaderName).
		WithIdleTimeout(c.IdleTimeout).
		WithExpiry(c.Expiry)
}

// IDGenerator returns the generator selected by IDFormat.
func (c AuthConfig) IDGenerator() auth.IDGenerator {
	if c.IDFormat == "uuid" {
		return auth.UUIDGenerator{}
	}
	return auth.SecureIDGenerator{}
}

// Lvl returns the gommon level, WARN when unset.
func (c LogConfig) Lvl() log.Lvl {
	lvl, _ := parseLevel(c.Level)
	return lvl
}

func parseLevel(s string) (log.Lvl, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG, true
	case "info":
		return log.INFO, true
	case "", "warn", "warning":
		return log.WARN, true
	case "error":
		return log.ERROR, true
	case "off":
		return log.OFF, true
	}
	return log.WARN, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolFromEnv(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// durationFromEnv accepts Go duration strings; invalid values keep defaultVal.
func durationFromEnv(name string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
