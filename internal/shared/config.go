package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Site        SiteConfig        `toml:"site"`
	Credentials CredentialsConfig `toml:"credentials"`
	Cache       CacheConfig       `toml:"cache"`
}

// SiteConfig contains paths and limits for the published site.
type SiteConfig struct {
	MixdiscDir           string `toml:"mixdisc_dir"`            // directory of submission YAML files
	OutputDir            string `toml:"output_dir"`             // rendered HTML output
	TemplateDir          string `toml:"template_dir"`           // optional override for embedded templates
	DurationLimitMinutes int    `toml:"duration_limit_minutes"` // hard playlist duration limit
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify client-credentials API settings.
type SpotifyConfig struct {
	ClientID     string  `toml:"client_id"`
	ClientSecret string  `toml:"client_secret"`
	RateLimit    float64 `toml:"rate_limit"` // requests per second
}

// CacheConfig contains persistence settings for the playlist and track caches.
type CacheConfig struct {
	StorePath       string `toml:"store_path"`        // playlist cache JSON document
	TrackCachePath  string `toml:"track_cache_path"`  // track cache SQLite database
	TrackMaxAgeDays int    `toml:"track_max_age_days"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
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

	return &config, nil
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
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
