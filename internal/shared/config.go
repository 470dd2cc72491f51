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
	Credentials CredentialsConfig `toml:"credentials"`
	Transfer    TransferConfig    `toml:"transfer"`
	API         APIConfig         `toml:"api"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig contains Google Photos OAuth client credentials.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// TransferConfig tunes the transfer engine.
type TransferConfig struct {
	MaxConcurrent int `toml:"max_concurrent"`
	ChunkSizeMB   int `toml:"chunk_size_mb"`
	MaxRetries    int `toml:"max_retries"`
	BaseDelayMS   int `toml:"base_delay_ms"`
}

// ChunkSize returns the streaming chunk size in bytes.
func (t TransferConfig) ChunkSize() int {
	return t.ChunkSizeMB * 1024 * 1024
}

// BaseDelay returns the first retry backoff delay.
func (t TransferConfig) BaseDelay() time.Duration {
	return time.Duration(t.BaseDelayMS) * time.Millisecond
}

// APIConfig contains remote API client settings.
type APIConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutReadS      int     `toml:"timeout_read_s"`
	TimeoutWriteS     int     `toml:"timeout_write_s"`
}

// ReadTimeout bounds a single download request.
func (a APIConfig) ReadTimeout() time.Duration {
	return time.Duration(a.TimeoutReadS) * time.Second
}

// WriteTimeout bounds a single upload request.
func (a APIConfig) WriteTimeout() time.Duration {
	return time.Duration(a.TimeoutWriteS) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks transfer and API limits.
func (c *Config) Validate() error {
	t := c.Transfer
	switch {
	case t.MaxConcurrent < 1:
		return fmt.Errorf("%w: transfer.max_concurrent must be at least 1", ErrInvalidConfig)
	case t.ChunkSizeMB < 1:
		return fmt.Errorf("%w: transfer.chunk_size_mb must be at least 1", ErrInvalidConfig)
	case t.MaxRetries < 0:
		return fmt.Errorf("%w: transfer.max_retries cannot be negative", ErrInvalidConfig)
	case t.BaseDelayMS < 0:
		return fmt.Errorf("%w: transfer.base_delay_ms cannot be negative", ErrInvalidConfig)
	}
	if c.API.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: api.requests_per_second must be positive", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// HasGoogleCredentials reports whether OAuth client credentials are configured.
func (c *Config) HasGoogleCredentials() bool {
	g := c.Credentials.Google
	return g.ClientID != "" && g.ClientSecret != "" && g.ClientID != "your_google_client_id"
}
