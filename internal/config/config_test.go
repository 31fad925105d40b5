package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for key := range defaults {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("IMAGETOOLS_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Addr != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.API.Addr)
	}
	if cfg.API.MaxUploadBytes() != 50<<20 {
		t.Fatalf("expected 50MB limit, got %d", cfg.API.MaxUploadBytes())
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Window != 15*time.Minute || !cfg.RateLimit.Enabled() {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if cfg.Office.Binary != "soffice" || cfg.Office.Timeout != time.Minute {
		t.Fatalf("unexpected office config: %+v", cfg.Office)
	}
	if cfg.Tracing.Exporter != "none" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected tracing/log config: %+v %+v", cfg.Tracing, cfg.Log)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("IMAGETOOLS_CONFIG", "")
	t.Setenv("IMAGETOOLS_API_ADDR", ":9090")
	t.Setenv("IMAGETOOLS_DISABLE_PRIMARY", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")
	t.Setenv("OFFICE_TIMEOUT", "90s")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Addr != ":9090" || !cfg.Pipeline.DisablePrimary || cfg.Pipeline.DisableSecondary {
		t.Fatalf("unexpected config: %+v %+v", cfg.API, cfg.Pipeline)
	}
	if cfg.RateLimit.Enabled() {
		t.Fatal("zero requests should disable rate limiting")
	}
	if cfg.Office.Timeout != 90*time.Second || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("unexpected overrides: %+v %+v", cfg.Office, cfg.Redis)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imagetools.yaml")
	body := "IMAGETOOLS_MAX_UPLOAD_MB: 5\nLOG_LEVEL: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("IMAGETOOLS_CONFIG", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.MaxUploadMB != 5 {
		t.Fatalf("expected file value 5, got %d", cfg.API.MaxUploadMB)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("expected env to win over file, got %s", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("IMAGETOOLS_CONFIG", "")
	t.Setenv("IMAGETOOLS_MAX_UPLOAD_MB", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative upload limit")
	}

	t.Setenv("IMAGETOOLS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("IMAGETOOLS_MAX_UPLOAD_MB", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
