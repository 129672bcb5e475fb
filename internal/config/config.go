package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"billcast/internal/domain"
)

// Config models billcast.yml.
type Config struct {
	Provider struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"provider"`
	Model struct {
		Endpoint string `yaml:"endpoint"`
		Name     string `yaml:"name"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"model"`
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Watchlist []string `yaml:"watchlist"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Provider.BaseURL != "" && !strings.HasPrefix(c.Provider.BaseURL, "http") {
		return fmt.Errorf("config.provider.base_url must be an http(s) URL")
	}
	if c.Model.Endpoint != "" && c.Model.Name == "" {
		return fmt.Errorf("config.model.name is required when model.endpoint is set")
	}
	for _, raw := range c.Watchlist {
		if _, err := domain.ParseBillID(raw); err != nil {
			return fmt.Errorf("config.watchlist: %w", err)
		}
	}
	return nil
}

// WatchlistIDs parses the configured watchlist. Validate has already
// checked each entry.
func (c *Config) WatchlistIDs() []domain.BillID {
	ids := make([]domain.BillID, 0, len(c.Watchlist))
	for _, raw := range c.Watchlist {
		id, err := domain.ParseBillID(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ModelConfigured reports whether the optional classifier is usable.
func (c *Config) ModelConfigured() bool {
	return c.Model.Endpoint != "" && c.Model.Name != "" && c.Model.APIKey != ""
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "billcast.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads config from workspace, falling back to defaults when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
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

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `provider:
  base_url: https://legis.senado.leg.br/dadosabertos

# Optional OpenAI-compatible classifier. Rule-based analysis runs when absent.
model:
  endpoint: ""
  name: ""
  api_key: ""

server:
  addr: ":8080"
  base_path: /api/v1
  jwt_secret: ""

# Bills tracked by default for sector overviews.
watchlist:
  - PL 2234/2022
  - PL 3718/2024
  - PL 3405/2023
`
