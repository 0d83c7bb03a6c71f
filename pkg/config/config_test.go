package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "riskd.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "feeds:\n  domain: basketball_nba\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feeds.Domain != "basketball_nba" {
		t.Errorf("domain = %q, want basketball_nba", cfg.Feeds.Domain)
	}
	if cfg.Server.Addr != ":8090" {
		t.Errorf("addr default = %q", cfg.Server.Addr)
	}
	if got := cfg.CacheTTL(); got != 60*time.Second {
		t.Errorf("cache ttl default = %v", got)
	}
	if got := cfg.CacheSweep(); got != 120*time.Second {
		t.Errorf("cache sweep default = %v", got)
	}
	if cfg.Risk.ConcentrationThreshold != 0.5 {
		t.Errorf("concentration default = %v", cfg.Risk.ConcentrationThreshold)
	}
	if cfg.Perf.WindowDays != 30 {
		t.Errorf("window default = %d", cfg.Perf.WindowDays)
	}
	if cfg.Storage.DSN != "riskcore.db" {
		t.Errorf("dsn default = %q", cfg.Storage.DSN)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SPORTSBOOK_API_KEY", "sb-secret")
	t.Setenv("RISKD_ADDR", ":9999")
	t.Setenv("RISKD_DSN", ":memory:")

	path := writeConfig(t, "server:\n  addr: \":8090\"\nstorage:\n  dsn: file.db\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feeds.SportsbookKey != "sb-secret" {
		t.Errorf("sportsbook key = %q", cfg.Feeds.SportsbookKey)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("env addr override lost: %q", cfg.Server.Addr)
	}
	if cfg.Storage.DSN != ":memory:" {
		t.Errorf("env dsn override lost: %q", cfg.Storage.DSN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
