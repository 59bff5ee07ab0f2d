package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	TestFraction float64    `yaml:"test_fraction,omitempty"` // Held-out fraction for evaluation (fallback: 0.3)
	Trees        int        `yaml:"trees,omitempty"`         // Number of trees in the forest (fallback: 100)
	Folds        int        `yaml:"folds,omitempty"`         // Cross-validation fold count (fallback: 5)
	Seed         uint64     `yaml:"seed,omitempty"`          // Random seed (fallback: 42)
	MaxDepth     int        `yaml:"max_depth,omitempty"`     // Tree depth limit, 0 = unlimited
	ModelDir     string     `yaml:"model_dir,omitempty"`     // Where artifacts are written (fallback: models)
	MQTT         MQTTConfig `yaml:"mqtt,omitempty"`
}

// MQTTConfig holds broker settings for publishing predictions
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // default "gridforecast"
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetTestFraction returns the held-out test fraction with a default of 0.3
func (c *Config) GetTestFraction() float64 {
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return 0.3
	}
	return c.TestFraction
}

// GetTrees returns the forest size with a default of 100
func (c *Config) GetTrees() int {
	if c.Trees <= 0 {
		return 100
	}
	return c.Trees
}

// GetFolds returns the cross-validation fold count with a default of 5
func (c *Config) GetFolds() int {
	if c.Folds <= 0 {
		return 5
	}
	return c.Folds
}

// GetSeed returns the random seed with a default of 42
func (c *Config) GetSeed() uint64 {
	if c.Seed == 0 {
		return 42
	}
	return c.Seed
}

// GetMaxDepth returns the tree depth limit, 0 meaning unlimited
func (c *Config) GetMaxDepth() int {
	if c.MaxDepth < 0 {
		return 0
	}
	return c.MaxDepth
}

// GetModelDir returns the artifact directory with a default of "models"
func (c *Config) GetModelDir() string {
	if c.ModelDir == "" {
		return "models"
	}
	return c.ModelDir
}

// GetTopicPrefix returns the MQTT topic prefix with a default of "gridforecast"
func (c *MQTTConfig) GetTopicPrefix() string {
	if c.TopicPrefix == "" {
		return "gridforecast"
	}
	return c.TopicPrefix
}
