package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Player      PlayerConfig      `toml:"player"`
	Bus         BusConfig         `toml:"bus"`
	Queue       QueueConfig       `toml:"queue"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
	RateLimit    float64   `toml:"rate_limit"`
	Timeout      int       `toml:"timeout_seconds"`
}

// Map returns the credentials in the form expected by services.NewSpotifyService.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// Token returns the stored token, or nil when no access token has been saved.
func (c SpotifyConfig) Token() *oauth2.Token {
	if c.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.TokenExpiry,
		TokenType:    "Bearer",
	}
}

// RequestTimeout returns the per-request timeout, or zero when unset.
func (c SpotifyConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 0
	}
	return time.Duration(c.Timeout) * time.Second
}

// Update stores the token fields from an OAuth exchange.
func (c *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	c.TokenExpiry = token.Expiry
	return nil
}

// PlayerConfig points at the external player process.
type PlayerConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout int    `toml:"timeout_seconds"`
}

// BusConfig contains the cross-process event bus endpoint.
type BusConfig struct {
	Path   string `toml:"path"`
	Buffer int    `toml:"buffer"`
}

// QueueConfig contains queue behavior toggles.
type QueueConfig struct {
	SkipUnavailable bool `toml:"skip_unavailable"`
	RestoreOnStart  bool `toml:"restore_on_start"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values from a .env file in the working directory and SPOTIQ_* environment variables override the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	_ = godotenv.Load()
	config.ApplyEnv()

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

// ApplyEnv overrides credentials and endpoints from SPOTIQ_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SPOTIQ_SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIQ_SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIQ_SPOTIFY_ACCESS_TOKEN"); v != "" {
		c.Credentials.Spotify.AccessToken = v
	}
	if v := os.Getenv("SPOTIQ_PLAYER_URL"); v != "" {
		c.Player.BaseURL = v
	}
	if v := os.Getenv("SPOTIQ_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SPOTIQ_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
