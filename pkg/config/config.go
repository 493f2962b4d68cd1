// Package config loads the client configuration and watches it for
// changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for forms like
// "15m" or "300ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full configuration surface of the engine.
type Config struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
	Project  string `yaml:"project"`

	CacheTTL         Duration `yaml:"cache_ttl"`
	DebounceInterval Duration `yaml:"debounce_interval"`
	PageSize         int      `yaml:"page_size"`
	BatchCeiling     int      `yaml:"batch_ceiling"`
	HybridThreshold  int      `yaml:"hybrid_threshold"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		CacheTTL:         Duration(15 * time.Minute),
		DebounceInterval: Duration(300 * time.Millisecond),
		PageSize:         50,
		BatchCeiling:     25,
		HybridThreshold:  200,
	}
}

// Load reads a YAML config file. Unset fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.CacheTTL <= 0 {
		c.CacheTTL = def.CacheTTL
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = def.DebounceInterval
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.BatchCeiling <= 0 {
		c.BatchCeiling = def.BatchCeiling
	}
	if c.HybridThreshold <= 0 {
		c.HybridThreshold = def.HybridThreshold
	}
}

// Validate checks the fields required to reach the ticket API.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Project == "" {
		return fmt.Errorf("project is required")
	}
	return nil
}
