// Package config holds the application configuration, loaded through viper
// from file and environment.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
)

// Config is the root configuration tree.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Driver   DriverConfig   `mapstructure:"driver" yaml:"driver"`
	Healing  HealingConfig  `mapstructure:"healing" yaml:"healing"`
	Learning LearningConfig `mapstructure:"learning" yaml:"learning"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File rotation (lumberjack). Logging to a file is off when LogFile
	// is empty.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DriverConfig selects and tunes the browser adapter.
type DriverConfig struct {
	// Kind is "chromedp" or "playwright".
	Kind              string        `mapstructure:"kind" yaml:"kind"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// HealingConfig bounds resolution and interaction retries.
type HealingConfig struct {
	PrimaryTimeout    time.Duration `mapstructure:"primary_timeout" yaml:"primary_timeout"`
	FallbackTimeout   time.Duration `mapstructure:"fallback_timeout" yaml:"fallback_timeout"`
	ActionableTimeout time.Duration `mapstructure:"actionable_timeout" yaml:"actionable_timeout"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// LearningConfig controls snapshot export and reload.
type LearningConfig struct {
	// ExportPath is where the session snapshot is written. Empty means
	// DefaultExportPath().
	ExportPath string `mapstructure:"export_path" yaml:"export_path"`
	// SeedFromLast reloads the previous snapshot at startup and promotes
	// learned fallbacks in the field registry.
	SeedFromLast bool `mapstructure:"seed_from_last" yaml:"seed_from_last"`
}

// Default returns the configuration used when no file or env overrides are
// present.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "selfheal",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      14,
		},
		Driver: DriverConfig{
			Kind:              "chromedp",
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
		},
		Healing: HealingConfig{
			PrimaryTimeout:    10 * time.Second,
			FallbackTimeout:   3 * time.Second,
			ActionableTimeout: 5 * time.Second,
			MaxRetries:        3,
			RetryDelay:        500 * time.Millisecond,
		},
		Learning: LearningConfig{},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Driver.Kind {
	case "chromedp", "playwright":
	default:
		return fmt.Errorf("driver.kind must be \"chromedp\" or \"playwright\", got %q", c.Driver.Kind)
	}
	if c.Healing.MaxRetries < 1 {
		return fmt.Errorf("healing.max_retries must be at least 1, got %d", c.Healing.MaxRetries)
	}
	if c.Healing.PrimaryTimeout <= 0 || c.Healing.FallbackTimeout <= 0 {
		return fmt.Errorf("healing timeouts must be positive")
	}
	if c.Healing.RetryDelay < 0 {
		return fmt.Errorf("healing.retry_delay must not be negative")
	}
	return nil
}

// ResolvedExportPath returns the configured export path, or the default
// under the user's home directory when unset.
func (c *Config) ResolvedExportPath() (string, error) {
	if c.Learning.ExportPath != "" {
		return c.Learning.ExportPath, nil
	}
	return DefaultExportPath()
}

// DefaultExportPath is ~/.selfheal/learning.json.
func DefaultExportPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".selfheal", "learning.json"), nil
}
