package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestUpstreamTimeoutClamped(t *testing.T) {
	cases := []struct {
		seconds int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 3 * time.Second},
		{3, 3 * time.Second},
		{5, 5 * time.Second},
		{8, 8 * time.Second},
		{30, 8 * time.Second},
	}
	for _, tc := range cases {
		u := UpstreamConfig{TimeoutSeconds: tc.seconds}
		if got := u.Timeout(); got != tc.want {
			t.Fatalf("timeout(%d) = %s, want %s", tc.seconds, got, tc.want)
		}
	}
}

func TestLoadFromPathLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	content := []byte(`
server:
  port: 9999
cache:
  version: 7
prewarm:
  static_assets:
    - /index.html
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Cache.Version != 7 {
		t.Fatalf("cache version = %d, want 7", cfg.Cache.Version)
	}
	// Unspecified fields keep their defaults.
	if cfg.Sync.MaxRetries != 5 {
		t.Fatalf("sync max retries = %d, want default 5", cfg.Sync.MaxRetries)
	}
	if len(cfg.Prewarm.StaticAssets) != 1 {
		t.Fatalf("static assets = %v, want one entry", cfg.Prewarm.StaticAssets)
	}
}

func TestLoadFallsBackWhenFileMissing(t *testing.T) {
	t.Setenv("GATEWAY_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Fatalf("port = %d, want default", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("GATEWAY_PORT", "8123")
	t.Setenv("UPSTREAM_URL", "http://origin:3000")
	t.Setenv("CACHE_VERSION", "4")
	t.Setenv("DATABASE_DSN", "postgres://localhost/gateway")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Fatalf("port = %d, want 8123", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL != "http://origin:3000" {
		t.Fatalf("upstream = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Cache.Version != 4 {
		t.Fatalf("cache version = %d, want 4", cfg.Cache.Version)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver = %q, want postgres inferred", cfg.Database.Driver)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	bad := Default()
	bad.Server.Port = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero port accepted")
	}

	bad = Default()
	bad.Cache.Version = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero cache version accepted")
	}

	bad = Default()
	bad.Cache.APIPrefix = "api/"
	if err := bad.Validate(); err == nil {
		t.Fatal("relative api prefix accepted")
	}
}
