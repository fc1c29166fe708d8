// Package config loads tunneldeck configuration with Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the resolved configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Registry RegistryConfig `mapstructure:"registry"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	DB       string         `mapstructure:"db"`
}

// BackendConfig locates the backend RPC endpoint.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RefreshConfig is the refresh scheduler cadence.
type RefreshConfig struct {
	IdleInterval  time.Duration `mapstructure:"idle_interval"`
	DebounceDelay time.Duration `mapstructure:"debounce_delay"`
	CoalesceDelay time.Duration `mapstructure:"coalesce_delay"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
}

// RegistryConfig controls the background connection reload.
type RegistryConfig struct {
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

// LoggingConfig mirrors the logging.* keys read by NewLogger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://127.0.0.1:8765")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("refresh.idle_interval", "5s")
	v.SetDefault("refresh.debounce_delay", "300ms")
	v.SetDefault("refresh.coalesce_delay", "1s")
	v.SetDefault("refresh.job_timeout", "30s")
	v.SetDefault("registry.reload_interval", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("db", "")
}

// Load reads configuration from file and environment variables.
// configDir and the working directory are searched for config.yaml when
// configPath is empty.
func Load(configPath, configDir string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if configDir != "" {
			v.AddConfigPath(configDir)
		}
		v.AddConfigPath(".")
	}

	// Environment variable support: TUNNELDECK_BACKEND_URL=unix:///run/tunneldeck.sock
	v.SetEnvPrefix("TUNNELDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url must not be empty")
	}
	if c.Refresh.IdleInterval <= 0 {
		return fmt.Errorf("refresh.idle_interval must be positive, got %s", c.Refresh.IdleInterval)
	}
	if c.Refresh.DebounceDelay <= 0 {
		return fmt.Errorf("refresh.debounce_delay must be positive, got %s", c.Refresh.DebounceDelay)
	}
	if c.Refresh.CoalesceDelay < c.Refresh.DebounceDelay {
		return fmt.Errorf("refresh.coalesce_delay (%s) must not be shorter than refresh.debounce_delay (%s)",
			c.Refresh.CoalesceDelay, c.Refresh.DebounceDelay)
	}
	return nil
}

// overridable lists the keys the settings tab may persist.
var overridable = map[string]bool{
	"refresh.idle_interval":    true,
	"refresh.debounce_delay":   true,
	"refresh.coalesce_delay":   true,
	"registry.reload_interval": true,
}

// IsOverridable reports whether key may be persisted in the settings table.
func IsOverridable(key string) bool {
	return overridable[key]
}

// ApplyOverrides copies persisted settings into v. Keys that may not be
// overridden are ignored; the keys of values that are not a positive duration
// are returned.
func ApplyOverrides(v *viper.Viper, settings map[string]string) []string {
	var skipped []string
	for key, value := range settings {
		if !overridable[key] {
			continue
		}
		d, err := ParseSetting(value)
		if err != nil {
			skipped = append(skipped, key)
			continue
		}
		v.Set(key, d)
	}
	return skipped
}

// ParseSetting parses a stored interval. Only positive durations are accepted.
func ParseSetting(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", value)
	}
	return d, nil
}
