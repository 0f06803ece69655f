package config

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

const (
	defaultConfigPath = "configs/alidns.yaml"
	defaultListen     = ":8080"
)

// Config holds the managed domain, app-level options, and the
// provider connection settings.
type Config struct {
	Domain         string            `yaml:"domain"`
	Listen         string            `yaml:"listen"`
	Upsert         bool              `yaml:"upsert"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	Settings       map[string]string `yaml:"settings"`
}

// LoadConfig reads the configuration from the path specified by the
// ALIDNS_CONFIG_PATH environment variable, defaulting to
// "configs/alidns.yaml".
func LoadConfig() (*Config, error) {
	path := os.Getenv("ALIDNS_CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	return LoadConfigFromPath(path)
}

// LoadConfigFromPath reads the configuration from the given file path.
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Domain = strings.TrimSuffix(strings.TrimSpace(cfg.Domain), ".")
	if cfg.Domain == "" {
		return nil, fmt.Errorf("config: missing required field 'domain'")
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}

	// Expand ${ENV_VAR} references in setting values.
	for k, v := range cfg.Settings {
		cfg.Settings[k] = os.ExpandEnv(v)
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]string{}
	}

	return &cfg, nil
}
