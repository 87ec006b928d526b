package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Site.DurationLimitMinutes != 80 {
			t.Errorf("expected duration limit 80, got %d", config.Site.DurationLimitMinutes)
		}

		if config.Cache.StorePath != ".playlist_cache/playlists_cache.json" {
			t.Errorf("unexpected store path %s", config.Cache.StorePath)
		}

		if config.Cache.TrackMaxAgeDays != 90 {
			t.Errorf("expected track max age 90 days, got %d", config.Cache.TrackMaxAgeDays)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected placeholder client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

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

		defaultConfig := DefaultConfig()
		if config.Site.MixdiscDir != defaultConfig.Site.MixdiscDir {
			t.Error("created config mixdisc dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		content := `
[site]
mixdisc_dir = "./lists"
duration_limit_minutes = 60

[credentials.spotify]
client_id = "abc"
client_secret = "def"

[cache]
store_path = "/tmp/cache.json"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Site.MixdiscDir != "./lists" {
			t.Errorf("expected mixdisc dir ./lists, got %s", config.Site.MixdiscDir)
		}
		if config.Site.DurationLimitMinutes != 60 {
			t.Errorf("expected duration limit 60, got %d", config.Site.DurationLimitMinutes)
		}
		if config.Credentials.Spotify.ClientSecret != "def" {
			t.Errorf("expected client secret def, got %s", config.Credentials.Spotify.ClientSecret)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("LoadConfig invalid TOML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := os.WriteFile(configPath, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid TOML")
		}
	})
}
