package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all FinMate configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Mail      MailConfig      `mapstructure:"mail"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// MailConfig defines the HTTP mail-gateway settings. SMTP delivery itself is
// handled behind the gateway.
type MailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	From    string `mapstructure:"from"`
	Secret  string `mapstructure:"secret"`
}

// ReconcileConfig defines batch-job settings.
type ReconcileConfig struct {
	Workers         int    `mapstructure:"workers"`
	DispatchWorkers int    `mapstructure:"dispatch_workers"`
	QueueSize       int    `mapstructure:"queue_size"`
	DrainTimeout    string `mapstructure:"drain_timeout"`
}

// DaemonConfig defines the scheduler daemon settings.
type DaemonConfig struct {
	Listen   string `mapstructure:"listen"`
	Interval string `mapstructure:"interval"`
}

// SeedConfig defines default-data seeding settings.
type SeedConfig struct {
	CategoriesPath string `mapstructure:"categories_path"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".finmate"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".finmate", "finmate.db"))
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.from", "noreply@finmate.com")
	v.SetDefault("reconcile.workers", 4)
	v.SetDefault("reconcile.dispatch_workers", 4)
	v.SetDefault("reconcile.queue_size", 64)
	v.SetDefault("reconcile.drain_timeout", "30s")
	v.SetDefault("daemon.listen", "127.0.0.1:8687")
	v.SetDefault("daemon.interval", "24h")
	v.SetDefault("seed.categories_path", "seed/categories.yaml")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("FINMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
