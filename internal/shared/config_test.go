package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./photomirror.db" {
			t.Errorf("expected database path ./photomirror.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "localhost:8080" {
			t.Errorf("expected server addr localhost:8080, got %s", config.Server.Addr())
		}

		if config.Transfer.MaxConcurrent != 3 || config.Transfer.MaxRetries != 3 {
			t.Errorf("unexpected transfer defaults: %+v", config.Transfer)
		}

		if got := config.Transfer.ChunkSize(); got != 8*1024*1024 {
			t.Errorf("expected 8 MiB chunk size, got %d", got)
		}

		if got := config.Transfer.BaseDelay(); got != time.Second {
			t.Errorf("expected 1s base delay, got %v", got)
		}

		if config.API.ReadTimeout() != 30*time.Second || config.API.WriteTimeout() != 60*time.Second {
			t.Errorf("unexpected api timeouts: %+v", config.API)
		}

		if config.HasGoogleCredentials() {
			t.Error("placeholder credentials should not count as configured")
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[credentials.google]
client_id = "test_client_id"
client_secret = "test_secret"

[transfer]
max_concurrent = 5
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Transfer.MaxConcurrent != 5 {
			t.Errorf("expected max_concurrent 5, got %d", config.Transfer.MaxConcurrent)
		}

		if config.Transfer.ChunkSizeMB != 8 {
			t.Errorf("missing keys should keep defaults, got chunk_size_mb %d", config.Transfer.ChunkSizeMB)
		}

		if !config.HasGoogleCredentials() {
			t.Error("expected google credentials to be configured")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{"zero workers", func(c *Config) { c.Transfer.MaxConcurrent = 0 }},
			{"zero chunk", func(c *Config) { c.Transfer.ChunkSizeMB = 0 }},
			{"negative retries", func(c *Config) { c.Transfer.MaxRetries = -1 }},
			{"negative delay", func(c *Config) { c.Transfer.BaseDelayMS = -5 }},
			{"zero rate", func(c *Config) { c.API.RequestsPerSecond = 0 }},
			{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
