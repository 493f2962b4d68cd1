package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticketdesk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
base_url: https://support.example.com
username: anna
token: secret
project: HD
cache_ttl: 5m
debounce_interval: 150ms
page_size: 25
batch_ceiling: 10
hybrid_threshold: 80
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://support.example.com" || cfg.Project != "HD" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CacheTTL.Std() != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL.Std())
	}
	if cfg.DebounceInterval.Std() != 150*time.Millisecond {
		t.Errorf("DebounceInterval = %v, want 150ms", cfg.DebounceInterval.Std())
	}
	if cfg.PageSize != 25 || cfg.BatchCeiling != 10 || cfg.HybridThreshold != 80 {
		t.Errorf("knobs = %+v", cfg)
	}
}

func TestLoad_DefaultsForUnsetFields(t *testing.T) {
	path := writeConfig(t, `
base_url: https://support.example.com
project: HD
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.CacheTTL != def.CacheTTL {
		t.Errorf("CacheTTL = %v, want default %v", cfg.CacheTTL, def.CacheTTL)
	}
	if cfg.PageSize != def.PageSize {
		t.Errorf("PageSize = %d, want default %d", cfg.PageSize, def.PageSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "cache_ttl: soon\n")
	if _, err := Load(path); err == nil {
		t.Error("Load should reject unparseable durations")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should require base_url")
	}
	cfg.BaseURL = "https://support.example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should require project")
	}
	cfg.Project = "HD"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "base_url: https://one.example.com\nproject: HD\n")

	reloaded := make(chan Config, 1)
	w, err := Watch(path, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("base_url: https://two.example.com\nproject: HD\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.BaseURL != "https://two.example.com" {
			t.Errorf("reloaded base_url = %q", cfg.BaseURL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
