package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  port: "8888"
  welcome: "Welcome!"
  connect_timeout: 30s
  read_timeout: 10s
  problem_count: 3
  flag_secret: sekrit
monitor:
  addr: ":9090"
redis:
  addr: localhost:6379
  ttl: 5m
postgres:
  url: postgres://localhost/challenges
problems:
  set: standard
  ttl: 10m
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8888" || cfg.Server.ProblemCount != 3 || cfg.Server.FlagSecret != "sekrit" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Monitor.Addr != ":9090" {
		t.Fatalf("unexpected monitor config %+v", cfg.Monitor)
	}
	if cfg.Problems.Set != "standard" {
		t.Fatalf("unexpected problems config %+v", cfg.Problems)
	}
	if got := Duration(cfg.Server.ConnectTimeout, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s connect timeout, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDurationFallback(t *testing.T) {
	if got := Duration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := Duration("bogus", 2*time.Second); got != 2*time.Second {
		t.Fatalf("expected fallback for invalid input, got %v", got)
	}
	if got := Duration("1500ms", time.Minute); got != 1500*time.Millisecond {
		t.Fatalf("expected parsed value, got %v", got)
	}
}
