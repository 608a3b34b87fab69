package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML contains the embedded minimal configuration file
//
//go:embed default_config.yaml
var DefaultConfigYAML string

// LoadDefaultConfig parses the embedded default config on top of DefaultConfig
func LoadDefaultConfig() (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(DefaultConfigYAML), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}
	return cfg, nil
}
