package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if !cfg.Providers.WorldBank.Enabled {
		t.Error("expected worldbank provider enabled")
	}
	if cfg.Providers.WorldBank.BaseURL != "https://api.worldbank.org/v2" {
		t.Errorf("unexpected worldbank base_url %q", cfg.Providers.WorldBank.BaseURL)
	}
	if cfg.Crawl.MinDelayMS != 100 {
		t.Errorf("expected min_delay_ms 100, got %d", cfg.Crawl.MinDelayMS)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
crawl:
  min_delay_ms: 250
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.MinDelay() != 250*time.Millisecond {
		t.Errorf("expected 250ms min delay, got %v", cfg.MinDelay())
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Crawl.MaxSweepPages != 10 {
		t.Errorf("expected default max_sweep_pages 10, got %d", cfg.Crawl.MaxSweepPages)
	}
	if !cfg.Providers.Census.Enabled {
		t.Error("expected census provider enabled by default")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Providers.Census.Enabled {
		t.Error("expected census provider enabled from file")
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	if cfg.MinDelay() != 100*time.Millisecond {
		t.Errorf("expected 100ms fallback, got %v", cfg.MinDelay())
	}
	if cfg.RunTimeout() != 10*time.Minute {
		t.Errorf("expected 10m fallback, got %v", cfg.RunTimeout())
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
