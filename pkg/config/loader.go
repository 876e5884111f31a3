package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads yaml from path over the defaults. A missing file is not
// an error: the defaults are returned as-is so first runs need no config.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	applyClamps(cfg)
	return cfg, nil
}

// SaveConfig writes the config to the specified path
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func applyClamps(cfg *Config) {
	if cfg.Tabs.MinWidth < 4 {
		cfg.Tabs.MinWidth = 4
	}
	if cfg.Tabs.MaxWidth < cfg.Tabs.MinWidth {
		cfg.Tabs.MaxWidth = cfg.Tabs.MinWidth
	}
	if cfg.Tabs.WrapRows < 1 {
		cfg.Tabs.WrapRows = 1
	}
	if cfg.Wheel.DebounceMS < 0 {
		cfg.Wheel.DebounceMS = 0
	}
	if cfg.Wheel.Threshold < 1 {
		cfg.Wheel.Threshold = 1
	}
	if cfg.Sidebar.Width < 10 {
		cfg.Sidebar.Width = 10
	}
}
