package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file when none exists, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if err := r.loadConfig(configPath); err != nil {
				return err
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.database(); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)

	if !r.config.HasGoogleCredentials() {
		r.writePlain("Next steps:\n")
		r.writePlain("1. Add your Google OAuth client to [credentials.google] in %s\n", configPath)
		r.writePlain("2. Run 'photomirror auth --role source' and 'photomirror auth --role target'\n")
		return nil
	}
	return r.writePlain("✓ Setup complete\n")
}
