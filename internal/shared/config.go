package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Backend  BackendConfig  `toml:"backend"`
	Auth     AuthConfig     `toml:"auth"`
	HTTP     HTTPConfig     `toml:"http"`
	Workers  WorkersConfig  `toml:"workers"`
	Database DatabaseConfig `toml:"database"`
}

// ProviderConfig contains the streaming-bot provider endpoints and credentials.
type ProviderConfig struct {
	ClientID     string `toml:"client_id"`
	AuthorizeURL string `toml:"authorize_url"`
	APIBaseURL   string `toml:"api_base_url"`
	Scopes       string `toml:"scopes"`
}

// BackendConfig locates the companion backend that performs the code exchange.
type BackendConfig struct {
	BaseURL string `toml:"base_url"`
}

// AuthConfig contains loopback listener settings.
type AuthConfig struct {
	LoopbackPort   int `toml:"loopback_port"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// HTTPConfig contains outbound HTTP client settings.
type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// WorkersConfig sizes the background dispatch pool.
type WorkersConfig struct {
	Count int `toml:"count"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// AuthTimeout returns the authorization wait budget as a [time.Duration].
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.Auth.TimeoutSeconds) * time.Second
}

// HTTPTimeout returns the per-call HTTP timeout as a [time.Duration].
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	applyDefaults(&config)
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidInput)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func applyDefaults(c *Config) {
	if c.Auth.LoopbackPort == 0 {
		c.Auth.LoopbackPort = 8921
	}
	if c.Auth.TimeoutSeconds == 0 {
		c.Auth.TimeoutSeconds = 30
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 10
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 4
	}
}
