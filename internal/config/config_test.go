package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("HOST_BASE_URL", "http://127.0.0.1:8080")
	t.Setenv("HOST_WS_URL", "ws://127.0.0.1:8080/events")
	t.Setenv("CHESSCRAFT_CONFIG", "")
	t.Setenv("DATA_DIR", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != "file" || cfg.AutoDelete() != 30*time.Second || cfg.ClockTick() != time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.StyleDir != filepath.Join(cfg.DataDir, "styles") {
		t.Fatalf("StyleDir = %s", cfg.StyleDir)
	}
	if cfg.ForfeitAfter() != 3*time.Minute {
		t.Fatalf("ForfeitAfter = %s", cfg.ForfeitAfter())
	}
}

func TestLoad_Required(t *testing.T) {
	setRequired(t)
	t.Setenv("HOST_BASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without HOST_BASE_URL")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	body := "store_backend: redis\nredis_url: redis://file:6379/0\ncurrency: gold\nstake_max: 50\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHESSCRAFT_CONFIG", path)
	t.Setenv("REDIS_URL", "redis://env:6379/1")
	t.Setenv("STAKE_DEFAULT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File != path || cfg.StoreBackend != "redis" || cfg.Currency != "gold" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.RedisURL != "redis://env:6379/1" || cfg.StakeDefault != 5 {
		t.Fatalf("env did not win: %+v", cfg)
	}

	t.Setenv("STAKE_DEFAULT", "80")
	if _, err := Load(); err == nil {
		t.Fatalf("expected STAKE_DEFAULT > STAKE_MAX error")
	}
}

func TestLoad_BadValues(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "floppy")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing REDIS_URL error")
	}
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CLOCK_TICK_MS", "5")
	t.Setenv("AUTO_DELETE_FINISHED", "nope")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClockTickMS != 100 || cfg.AutoDeleteFinished != 30 {
		t.Fatalf("clamping = %+v", cfg)
	}
}
