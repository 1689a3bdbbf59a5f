// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type BackendConfig struct {
	// URL is the managed backend's base URL, e.g. https://club.example.com.
	URL string `yaml:"url"`
	// APIKey is the anonymous key presented on every request. Loaded from
	// environment.
	APIKey string `yaml:"-"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Backend BackendConfig `yaml:"backend"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Backend.APIKey = os.Getenv("BACKEND_API_KEY")
	if envURL := os.Getenv("BACKEND_URL"); envURL != "" {
		cfg.Backend.URL = envURL
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.App.SecretKey == "" {
		return fmt.Errorf("app secret key is required")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend URL is required")
	}
	parsed, err := url.Parse(c.Backend.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend URL must be absolute: %q", c.Backend.URL)
	}
	if c.Backend.APIKey == "" {
		return fmt.Errorf("backend API key is required")
	}
	return nil
}
