package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/mixdisc/internal/services"
	"github.com/desertthunder/mixdisc/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var spotifyService services.Service
	if svc, err := services.NewSpotifyService(
		config.Credentials.Spotify.ClientID,
		config.Credentials.Spotify.ClientSecret,
		config.Credentials.Spotify.RateLimit,
	); err == nil {
		spotifyService = svc
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Service: spotifyService,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "mixdisc",
		Usage:    "Render community mixdisc pages from playlist submissions",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
