// Package config loads and validates the vigil configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vigil/core"
)

// NotifyConfig configures the webhook alert notifier.
type NotifyConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	WebhookURL  string        `mapstructure:"webhook_url"`
	MinSeverity string        `mapstructure:"min_severity"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// RatePerMinute caps outbound webhook posts. Excess alerts are logged
	// and dropped from notification only; they stay in the alert store.
	RatePerMinute int `mapstructure:"rate_per_minute"`
}

// Config holds all settings for the engine and its collaborators.
type Config struct {
	// Interval is the poll cadence of the background scheduler.
	Interval time.Duration `mapstructure:"interval"`
	// Sources maps source name to log file path.
	Sources map[string]string `mapstructure:"sources"`
	// RulesPath optionally points at a YAML rule document. Empty selects the
	// builtin rule set.
	RulesPath string `mapstructure:"rules_path"`
	// StatePath is the durable snapshot file.
	StatePath string `mapstructure:"state_path"`
	// EventRingSize bounds recent-event retention.
	EventRingSize int `mapstructure:"event_ring_size"`
	// MaxCorrelationKeys bounds tracked (rule, entity) windows.
	MaxCorrelationKeys int `mapstructure:"max_correlation_keys"`
	// TopN sizes the top-source and top-rule stats tables.
	TopN int `mapstructure:"top_n"`
	// MetricsAddr, when non-empty, serves prometheus metrics on that address.
	MetricsAddr string `mapstructure:"metrics_addr"`
	// Debug switches the logger to development output.
	Debug bool `mapstructure:"debug"`

	Notify NotifyConfig `mapstructure:"notify"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", 500*time.Millisecond)
	v.SetDefault("state_path", "vigil_state.json")
	v.SetDefault("event_ring_size", 2000)
	v.SetDefault("max_correlation_keys", 10000)
	v.SetDefault("top_n", 5)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("debug", false)
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.min_severity", string(core.SeverityLow))
	v.SetDefault("notify.timeout", 5*time.Second)
	v.SetDefault("notify.rate_per_minute", 30)
}

// Load reads configuration from the optional YAML file at path, applying
// defaults and VIGIL_* environment overrides. An empty path loads defaults
// and environment only; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Sources are applied as a fallback rather than a viper default: viper
	// deep-merges map defaults with the config file, which would silently
	// extend a user-supplied source set.
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultSources returns the five standard log sources under ./logs.
func DefaultSources() map[string]string {
	return map[string]string{
		"auth_log":     filepath.Join("logs", "auth.log"),
		"web_log":      filepath.Join("logs", "web.log"),
		"firewall_log": filepath.Join("logs", "firewall.log"),
		"ids_log":      filepath.Join("logs", "ids.log"),
		"windows_log":  filepath.Join("logs", "windows.log"),
	}
}

// Validate checks cross-field constraints viper cannot express.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Interval > time.Second {
		return fmt.Errorf("interval must be sub-second, got %v", c.Interval)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one log source must be configured")
	}
	for name, path := range c.Sources {
		if name == "" || path == "" {
			return fmt.Errorf("source entries need both a name and a path")
		}
	}
	if c.StatePath == "" {
		return fmt.Errorf("state_path must not be empty")
	}
	if c.EventRingSize <= 0 {
		return fmt.Errorf("event_ring_size must be positive, got %d", c.EventRingSize)
	}
	if c.MaxCorrelationKeys <= 0 {
		return fmt.Errorf("max_correlation_keys must be positive, got %d", c.MaxCorrelationKeys)
	}
	if c.Notify.Enabled {
		if c.Notify.WebhookURL == "" {
			return fmt.Errorf("notify.webhook_url required when notifications are enabled")
		}
		if _, err := core.ParseSeverity(c.Notify.MinSeverity); err != nil {
			return fmt.Errorf("notify.min_severity: %w", err)
		}
	}
	if c.RulesPath != "" {
		if _, err := os.Stat(c.RulesPath); err != nil {
			return fmt.Errorf("rules_path: %w", err)
		}
	}
	return nil
}
