package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models gigledger.yml.
type Config struct {
	Ledger struct {
		ID string `yaml:"id"`
	} `yaml:"ledger"`
	Limits struct {
		MaxTitle       int `yaml:"max_title"`
		MaxDescription int `yaml:"max_description"`
		MaxCategories  int `yaml:"max_categories"`
		MaxSkills      int `yaml:"max_skills"`
	} `yaml:"limits"`
	Disputes struct {
		// FlagStatus moves a gig to the disputed status when a dispute
		// is raised against it while accepted or completed.
		FlagStatus bool `yaml:"flag_status"`
	} `yaml:"disputes"`
	Rating struct {
		Min uint64 `yaml:"min"`
		Max uint64 `yaml:"max"`
	} `yaml:"rating"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret,omitempty"`
	Events         []string `yaml:"events,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default("gigledger"), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Ledger.ID == "" {
		return fmt.Errorf("config.ledger.id is required")
	}
	if c.Limits.MaxTitle <= 0 {
		return fmt.Errorf("config.limits.max_title must be positive")
	}
	if c.Limits.MaxDescription <= 0 {
		return fmt.Errorf("config.limits.max_description must be positive")
	}
	if c.Limits.MaxCategories <= 0 {
		return fmt.Errorf("config.limits.max_categories must be positive")
	}
	if c.Limits.MaxSkills <= 0 {
		return fmt.Errorf("config.limits.max_skills must be positive")
	}
	if c.Rating.Min == 0 {
		return fmt.Errorf("config.rating.min must be at least 1")
	}
	if c.Rating.Max < c.Rating.Min {
		return fmt.Errorf("config.rating.max must be >= config.rating.min")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "gigledger.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(ledgerID string) string {
	return fmt.Sprintf(defaultTemplate, ledgerID)
}

// Default returns the default Config struct for a ledger.
func Default(ledgerID string) *Config {
	var cfg Config
	cfg.Ledger.ID = ledgerID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, ledgerID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `ledger:
  id: %s

limits:
  max_title: 128
  max_description: 1024
  max_categories: 16
  max_skills: 32

disputes:
  flag_status: true

rating:
  min: 1
  max: 5
`
