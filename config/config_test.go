package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adeilh/bearer/auth"
	"github.com/labstack/gommon/log"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bearerd.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Server.Address != ":8080" || cfg.Server.EnableIssue {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.Settings() != auth.DefaultSettings() {
		t.Fatalf("Settings() = %+v, want defaults", cfg.Auth.Settings())
	}
	if cfg.Log.Lvl() != log.WARN {
		t.Fatalf("Lvl() = %v", cfg.Log.Lvl())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1:9000
  enable_issue: true
auth:
  header_name: X-Session
  idle_timeout: 0s
  expiry: 2h
  id_format: uuid
store:
  backend: redis
  redis_url: redis://localhost:6379/1
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := auth.Settings{HeaderName: "X-Session", IdleTimeout: 0, Expiry: 2 * time.Hour}
	if got := cfg.Auth.Settings(); got != want {
		t.Fatalf("Settings() = %+v, want %+v", got, want)
	}
	if !cfg.Server.EnableIssue || cfg.Server.Address != "127.0.0.1:9000" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if _, ok := cfg.Auth.IDGenerator().(auth.UUIDGenerator); !ok {
		t.Fatalf("IDGenerator() = %T, want UUIDGenerator", cfg.Auth.IDGenerator())
	}
	if cfg.Store.ReapInterval != auth.DefaultReapInterval {
		t.Fatalf("unset fields should keep defaults, ReapInterval = %v", cfg.Store.ReapInterval)
	}
	if cfg.Log.Lvl() != log.DEBUG {
		t.Fatalf("Lvl() = %v", cfg.Log.Lvl())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: memory\n")
	t.Setenv("BEARER_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/bearer?sslmode=disable")
	t.Setenv("BEARER_IDLE_TIMEOUT", "5m")
	t.Setenv("BEARER_EXPIRY", "not-a-duration")
	t.Setenv("BEARER_ENABLE_ISSUE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendPostgres || cfg.Store.PostgresDSN == "" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Auth.IdleTimeout != 5*time.Minute {
		t.Fatalf("IdleTimeout = %v", cfg.Auth.IdleTimeout)
	}
	if cfg.Auth.Expiry != auth.DefaultExpiry {
		t.Fatalf("invalid env duration should be ignored, Expiry = %v", cfg.Auth.Expiry)
	}
	if !cfg.Server.EnableIssue {
		t.Fatalf("EnableIssue not overridden")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown backend", body: "store:\n  backend: etcd\n"},
		{name: "redis without url", body: "store:\n  backend: redis\n"},
		{name: "postgres without dsn", body: "store:\n  backend: postgres\n"},
		{name: "zero expiry", body: "auth:\n  expiry: 0s\n"},
		{name: "empty header", body: "auth:\n  header_name: \" \"\n"},
		{name: "bad id format", body: "auth:\n  id_format: sequential\n"},
		{name: "bad log level", body: "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	if _, err := Load(writeConfig(t, "auth:\n  idle: 5m\n")); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
