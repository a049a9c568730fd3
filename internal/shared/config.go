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
	Credentials CredentialsConfig `toml:"credentials"`
	Sync        SyncConfig        `toml:"sync"`
	Database    DatabaseConfig    `toml:"database"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Tidal   TidalConfig   `toml:"tidal"`
}

// SpotifyConfig contains the Spotify API access token.
// Token acquisition and refresh live outside this program; the token is
// supplied ready to use.
type SpotifyConfig struct {
	AccessToken string `toml:"access_token"`
	BaseURL     string `toml:"base_url"`
}

// TidalConfig contains the Tidal API access token.
type TidalConfig struct {
	AccessToken string `toml:"access_token"`
	BaseURL     string `toml:"base_url"`
}

// SyncConfig controls which playlists are synced and where they land.
type SyncConfig struct {
	// PlaylistPrefix selects the source playlists to sync by name prefix.
	// Empty syncs everything.
	PlaylistPrefix string `toml:"playlist_prefix"`

	// ParentFolder is the destination folder the synced playlists are
	// created under. Empty uses the account root.
	ParentFolder string `toml:"parent_folder"`

	// Reorder mirrors source track ordering onto the destination after a
	// successful merge.
	Reorder bool `toml:"reorder"`
}

// DatabaseConfig contains search cache database settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `toml:"level"`
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
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
