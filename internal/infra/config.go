package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Loaded from YAML, then sensitive
// values are overridden from the environment.
type Config struct {
	Server struct {
		Host           string   `yaml:"host"`
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Auth struct {
		TokenSecret string `yaml:"token_secret"`
	} `yaml:"auth"`

	Kana struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"kana"`

	Icons struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"icons"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls log level and file rotation. Zero rotation values
// fall back to defaults at logger construction.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth token secret is required")
	}
	return nil
}

// overrideWithEnv replaces config values when the environment provides them.
func overrideWithEnv(cfg *Config) {
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if secret := os.Getenv("PERPDESK_TOKEN_SECRET"); secret != "" {
		cfg.Auth.TokenSecret = secret
	}
	if key := os.Getenv("KANA_API_KEY"); key != "" {
		cfg.Kana.APIKey = key
	}
	if url := os.Getenv("KANA_API_BASE_URL"); url != "" {
		cfg.Kana.BaseURL = url
	}
}
