package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"
)

// configFile is looked up under the XDG config dirs.
const configFile = "chesscraft/config.yml"

type AppConfig struct {
	HostBaseURL string `yaml:"host_base_url"`
	HostWSURL   string `yaml:"host_ws_url"`
	HostToken   string `yaml:"host_token"`

	StoreBackend      string `yaml:"store_backend"` // file | redis
	RedisURL          string `yaml:"redis_url"`
	DatabaseURL       string `yaml:"database_url"`
	LedgerDatabaseURL string `yaml:"ledger_database_url"`

	DataDir     string `yaml:"data_dir"`
	StyleDir    string `yaml:"style_dir"`
	MessagesDir string `yaml:"messages_dir"`
	AdminAddr   string `yaml:"admin_addr"`

	BroadcastResults    bool    `yaml:"broadcast_results"`
	AutoDeleteFinished  int     `yaml:"auto_delete_finished"` // seconds, 0 disables
	Economy             bool    `yaml:"economy"`
	StakeDefault        float64 `yaml:"stake_default"`
	StakeSmallIncrement float64 `yaml:"stake_small_increment"`
	StakeLargeIncrement float64 `yaml:"stake_large_increment"`
	StakeMax            float64 `yaml:"stake_max"`
	Currency            string  `yaml:"currency"`
	ClockTickMS         int     `yaml:"clock_tick_ms"`
	ForfeitAfterSec     int     `yaml:"forfeit_after"`

	StockfishPath string `yaml:"stockfish_path"`
	AIConfig      string `yaml:"ai_config"`
	BookPath      string `yaml:"book_path"` // polyglot .bin, optional

	// File is the overlay that was read, if any.
	File string `yaml:"-"`
}

func defaults() *AppConfig {
	return &AppConfig{
		StoreBackend:        "file",
		DataDir:             filepath.Join(xdg.DataHome, "chesscraft"),
		AdminAddr:           "127.0.0.1:9180",
		AutoDeleteFinished:  30,
		Economy:             true,
		StakeSmallIncrement: 1,
		StakeLargeIncrement: 10,
		Currency:            "coins",
		ClockTickMS:         1000,
		ForfeitAfterSec:     180,
	}
}

// Load builds the config from defaults, the YAML overlay and the
// environment, in that order.
func Load() (*AppConfig, error) {
	cfg := defaults()

	path := strings.TrimSpace(os.Getenv("CHESSCRAFT_CONFIG"))
	if path == "" {
		if found, err := xdg.SearchConfigFile(configFile); err == nil {
			path = found
		}
	}
	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.File = path
	}

	applyEnv(cfg)

	if cfg.StyleDir == "" {
		cfg.StyleDir = filepath.Join(cfg.DataDir, "styles")
	}
	if cfg.MessagesDir == "" {
		cfg.MessagesDir = filepath.Join(cfg.DataDir, "messages")
	}
	if cfg.AIConfig == "" {
		cfg.AIConfig = filepath.Join(cfg.DataDir, "ai.yml")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, cfg *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	integer := func(name string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				*dst = n
			}
		}
	}
	amount := func(name string, dst *float64) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
				*dst = f
			}
		}
	}

	str("HOST_BASE_URL", &cfg.HostBaseURL)
	str("HOST_WS_URL", &cfg.HostWSURL)
	str("HOST_TOKEN", &cfg.HostToken)

	str("STORE_BACKEND", &cfg.StoreBackend)
	str("REDIS_URL", &cfg.RedisURL)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("LEDGER_DATABASE_URL", &cfg.LedgerDatabaseURL)

	str("DATA_DIR", &cfg.DataDir)
	str("STYLE_DIR", &cfg.StyleDir)
	str("MESSAGES_DIR", &cfg.MessagesDir)
	str("ADMIN_ADDR", &cfg.AdminAddr)

	boolean("BROADCAST_RESULTS", &cfg.BroadcastResults)
	integer("AUTO_DELETE_FINISHED", &cfg.AutoDeleteFinished)
	boolean("ECONOMY", &cfg.Economy)
	amount("STAKE_DEFAULT", &cfg.StakeDefault)
	amount("STAKE_SMALL_INCREMENT", &cfg.StakeSmallIncrement)
	amount("STAKE_LARGE_INCREMENT", &cfg.StakeLargeIncrement)
	amount("STAKE_MAX", &cfg.StakeMax)
	str("CURRENCY", &cfg.Currency)
	integer("CLOCK_TICK_MS", &cfg.ClockTickMS)
	integer("FORFEIT_AFTER", &cfg.ForfeitAfterSec)

	str("STOCKFISH_PATH", &cfg.StockfishPath)
	str("AI_CONFIG", &cfg.AIConfig)
	str("BOOK_PATH", &cfg.BookPath)
}

func (c *AppConfig) validate() error {
	if c.HostBaseURL == "" {
		return errors.New("HOST_BASE_URL is required")
	}
	if c.HostWSURL == "" {
		return errors.New("HOST_WS_URL is required")
	}
	c.StoreBackend = strings.ToLower(c.StoreBackend)
	switch c.StoreBackend {
	case "file":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.StakeMax > 0 && c.StakeDefault > c.StakeMax {
		return fmt.Errorf("STAKE_DEFAULT %.2f exceeds STAKE_MAX %.2f", c.StakeDefault, c.StakeMax)
	}
	if c.ClockTickMS < 100 {
		c.ClockTickMS = 100
	}
	return nil
}

// Reload reads the config again. Callers decide which fields can change
// while running.
func Reload() (*AppConfig, error) { return Load() }

func (c *AppConfig) AutoDelete() time.Duration {
	return time.Duration(c.AutoDeleteFinished) * time.Second
}

func (c *AppConfig) ClockTick() time.Duration {
	return time.Duration(c.ClockTickMS) * time.Millisecond
}

func (c *AppConfig) ForfeitAfter() time.Duration {
	return time.Duration(c.ForfeitAfterSec) * time.Second
}
