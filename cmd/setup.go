package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/mixdisc/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if needed and initializes the track cache database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	if err := os.MkdirAll(config.Site.MixdiscDir, 0o755); err != nil {
		return fmt.Errorf("failed to create mixdisc directory: %w", err)
	}

	r.logger.Info("initializing track cache", "path", config.Cache.TrackCachePath)

	_, db, err := r.openTrackCache(config)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for track cache: %v", config.Cache.TrackCachePath)

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Submission directory: %s\n", config.Site.MixdiscDir)
	r.writePlain("Track cache: %s\n", config.Cache.TrackCachePath)
	r.writePlainln("Add spotify credentials to %s, then run 'mixdisc render'.", configPath)

	return nil
}
