// Package config resolves the runtime settings of the mise binary:
// defaults, then an optional YAML or JSON file, then MISE_<SECTION>_<KEY> environment variables.
// Command-line flags are applied on top by the caller.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/adapters/process"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// DefaultFile is read when no explicit config path is given.
const DefaultFile = "mise.yaml"

// Config is the full set of settings.
type Config struct {
	Log   LogConfig   `yaml:"log" json:"log"`
	Store StoreConfig `yaml:"store" json:"store"`
	HTTP  HTTPConfig  `yaml:"http" json:"http"`
	Timer TimerConfig `yaml:"timer" json:"timer"`

	// Hooks are only read from the file.
	Hooks []process.Hook `yaml:"hooks" json:"hooks"`
}

type TimerConfig struct {
	// Interval is the period of the ticking driver.
	Interval time.Duration `yaml:"interval" json:"interval" env:"INTERVAL"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
}

// StoreConfig selects the recipe store. Path is used by file and sqlite
// (empty means a default under .mise/), the Redis fields by redis only.
type StoreConfig struct {
	Driver        string `yaml:"driver" json:"driver" env:"DRIVER"`
	Path          string `yaml:"path" json:"path" env:"PATH"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix" env:"REDIS_PREFIX"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" json:"addr" env:"ADDR"`
	Metrics         bool          `yaml:"metrics" json:"metrics" env:"METRICS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: string(logging.FormatText)},
		Store: StoreConfig{
			Driver:      StoreFile,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "mise:",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			Metrics:         true,
			ShutdownTimeout: 5 * time.Second,
		},
		Timer: TimerConfig{Interval: time.Second},
	}
}

// Load resolves the configuration. An empty path falls back to DefaultFile,
// which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := readFile(path, &cfg, explicit); err != nil {
		return cfg, err
	}

	sections := []struct {
		prefix string
		target any
	}{
		{"MISE_LOG_", &cfg.Log},
		{"MISE_STORE_", &cfg.Store},
		{"MISE_HTTP_", &cfg.HTTP},
		{"MISE_TIMER_", &cfg.Timer},
	}
	for _, s := range sections {
		if err := env.ParseWithOptions(s.target, env.Options{Prefix: s.prefix}); err != nil {
			return cfg, fmt.Errorf("parse env: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

func readFile(path string, cfg *Config, mustExist bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	// Default to YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return err
	}
	if c.Timer.Interval <= 0 {
		return fmt.Errorf("timer.interval must be positive, got %s", c.Timer.Interval)
	}
	return nil
}
