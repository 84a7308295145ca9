// Package config loads maxd settings through viper.
//
// Precedence is flag > environment > config file > default. Environment
// variables use the MAXD_ prefix with dots replaced by underscores
// (MAXD_LOCK_TIMEOUT overrides lock.timeout). The config file is an
// optional config.yaml inside the storage directory.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/maxmarket/maxd/internal/lockfile"
)

// DefaultStorageDir is used when no --dir flag or MAXD_DIR is given.
const DefaultStorageDir = ".maxd"

// Config holds every tunable the CLI and daemon consume.
type Config struct {
	StorageDir string `mapstructure:"storage_dir"`

	Lock struct {
		Timeout        time.Duration `mapstructure:"timeout"`
		StaleThreshold time.Duration `mapstructure:"stale_threshold"`
		InitialBackoff time.Duration `mapstructure:"initial_backoff"`
		MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	} `mapstructure:"lock"`

	Watchdog struct {
		ScanInterval time.Duration `mapstructure:"scan_interval"`
		Debounce     time.Duration `mapstructure:"debounce"`
	} `mapstructure:"watchdog"`

	Market struct {
		TickInterval time.Duration `mapstructure:"tick_interval"`
		CandleWindow int           `mapstructure:"candle_window"`
	} `mapstructure:"market"`
}

// setDefaults registers defaults with a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage_dir", DefaultStorageDir)
	v.SetDefault("lock.timeout", lockfile.DefaultTimeout)
	v.SetDefault("lock.stale_threshold", lockfile.DefaultStaleThreshold)
	v.SetDefault("lock.initial_backoff", 100*time.Millisecond)
	v.SetDefault("lock.max_backoff", 2*time.Second)
	v.SetDefault("watchdog.scan_interval", 5*time.Minute)
	v.SetDefault("watchdog.debounce", 2*time.Second)
	v.SetDefault("market.tick_interval", 5*time.Minute)
	v.SetDefault("market.candle_window", 288) // one day of 5-minute candles
}

// Load reads configuration for the given storage directory. A missing
// config.yaml is not an error; malformed YAML is.
func Load(storageDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MAXD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if storageDir == "" {
		storageDir = v.GetString("dir")
	}
	if storageDir == "" {
		storageDir = DefaultStorageDir
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(storageDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.StorageDir = storageDir
	return &cfg, nil
}

// LockOptions converts the lock settings into lockfile options.
func (c *Config) LockOptions() lockfile.Options {
	return lockfile.Options{
		Timeout:        c.Lock.Timeout,
		StaleThreshold: c.Lock.StaleThreshold,
		InitialBackoff: c.Lock.InitialBackoff,
		MaxBackoff:     c.Lock.MaxBackoff,
	}
}
