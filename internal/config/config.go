// Package config loads flowcore's runtime configuration using viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the top-level static configuration, matching the `flowcore:`
// root key in YAML. Env vars use the FLOWCORE_ prefix (e.g.
// FLOWCORE_TABLE_MAX_FLOWS).
type Config struct {
	Table   TableConfig   `mapstructure:"table"`
	Classify ClassifyConfig `mapstructure:"classify"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// TableConfig configures the flow table's sizing and eviction.
type TableConfig struct {
	InitialSize    int    `mapstructure:"initial_size"`
	MaxFlows       int    `mapstructure:"max_flows"`
	FlowTimeout    string `mapstructure:"flow_timeout"` // e.g. "5m"
	PayloadCapture bool   `mapstructure:"payload_capture"`
	PayloadMaxSize int    `mapstructure:"payload_max_size"`
}

// ClassifyConfig holds the statistics switch; the application-protocol
// detector itself has no configurable settings.
type ClassifyConfig struct {
	// StatsEnabled toggles the cross-flow histograms (StatsAggregator);
	// per-flow classification always runs regardless.
	StatsEnabled bool `mapstructure:"stats_enabled"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string           `mapstructure:"level"`  // debug / info / warn / error
	Format string           `mapstructure:"format"` // json / console
	Output FileOutputConfig `mapstructure:"output"`
}

// FileOutputConfig configures optional rotated file output, layered on top
// of stderr.
type FileOutputConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// MetricsConfig configures the optional Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

type configRoot struct {
	Flowcore Config `mapstructure:"flowcore"`
}

// Load reads configuration from path (if non-empty) plus FLOWCORE_*
// environment variables, applies defaults, and returns the merged result.
// A missing config file is not an error — flowcore runs on defaults alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Every key already starts with "flowcore.", so no env prefix is set:
	// flowcore.table.max_flows maps to FLOWCORE_TABLE_MAX_FLOWS.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nfErr viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &nfErr) && !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
			}
		}
	}

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	cfg := root.Flowcore

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Watch arranges for onChange to be called, with the freshly reloaded
// Config, whenever the file at path changes on disk. It is a no-op if path
// is empty.
func Watch(path string, onChange func(*Config)) error {
	if path == "" {
		return nil
	}
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		var root configRoot
		if err := v.Unmarshal(&root); err != nil {
			return
		}
		cfg := root.Flowcore
		if cfg.validate() != nil {
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("flowcore.table.initial_size", 65536)
	v.SetDefault("flowcore.table.max_flows", 100000)
	v.SetDefault("flowcore.table.flow_timeout", "5m")
	v.SetDefault("flowcore.table.payload_capture", false)
	v.SetDefault("flowcore.table.payload_max_size", 65536)

	v.SetDefault("flowcore.classify.stats_enabled", true)

	v.SetDefault("flowcore.log.level", "info")
	v.SetDefault("flowcore.log.format", "console")
	v.SetDefault("flowcore.log.output.enabled", false)
	v.SetDefault("flowcore.log.output.path", "/var/log/flowcore/flowcore.log")
	v.SetDefault("flowcore.log.output.max_size_mb", 100)
	v.SetDefault("flowcore.log.output.max_age_days", 30)
	v.SetDefault("flowcore.log.output.max_backups", 5)
	v.SetDefault("flowcore.log.output.compress", true)

	v.SetDefault("flowcore.metrics.enabled", false)
	v.SetDefault("flowcore.metrics.listen", ":9091")
	v.SetDefault("flowcore.metrics.path", "/metrics")
}

func (c *Config) validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level: %s (must be debug/info/warn/error)", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log.format: %s (must be json/console)", c.Log.Format)
	}
	if c.Table.MaxFlows <= 0 {
		return fmt.Errorf("table.max_flows must be positive, got %d", c.Table.MaxFlows)
	}
	return nil
}
