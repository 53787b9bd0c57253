package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spotiq.db" {
			t.Errorf("expected database path ./spotiq.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Player.BaseURL != "http://127.0.0.1:7878" {
			t.Errorf("expected player base URL http://127.0.0.1:7878, got %s", config.Player.BaseURL)
		}

		if config.Bus.Path != "/events" {
			t.Errorf("expected bus path /events, got %s", config.Bus.Path)
		}

		if !config.Queue.SkipUnavailable {
			t.Error("expected skip_unavailable to default to true")
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
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
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[player]
base_url = "http://localhost:9999"

[queue]
skip_unavailable = false

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"
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

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected server addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Player.BaseURL != "http://localhost:9999" {
			t.Errorf("expected player base URL http://localhost:9999, got %s", config.Player.BaseURL)
		}

		if config.Queue.SkipUnavailable {
			t.Error("expected skip_unavailable false")
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SPOTIQ_SPOTIFY_CLIENT_ID", "env_client")
		t.Setenv("SPOTIQ_PLAYER_URL", "http://player.local")
		t.Setenv("SPOTIQ_SERVER_PORT", "4242")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Credentials.Spotify.ClientID != "env_client" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Player.BaseURL != "http://player.local" {
			t.Errorf("expected env player URL, got %s", config.Player.BaseURL)
		}
		if config.Server.Port != 4242 {
			t.Errorf("expected env port 4242, got %d", config.Server.Port)
		}
	})

	t.Run("SaveConfig Round Trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		if err := config.Credentials.Spotify.Update(&oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}); err != nil {
			t.Fatalf("failed to update token: %v", err)
		}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		token := loaded.Credentials.Spotify.Token()
		if token == nil || token.AccessToken != "access" || token.RefreshToken != "refresh" {
			t.Errorf("expected saved token to round trip, got %+v", token)
		}
	})

	t.Run("RequestTimeout", func(t *testing.T) {
		tests := []struct {
			seconds int
			want    time.Duration
		}{
			{0, 0},
			{-3, 0},
			{15, 15 * time.Second},
		}
		for _, tt := range tests {
			sc := SpotifyConfig{Timeout: tt.seconds}
			if got := sc.RequestTimeout(); got != tt.want {
				t.Errorf("RequestTimeout(%d) = %v, want %v", tt.seconds, got, tt.want)
			}
		}
	})

	t.Run("Update Rejects Empty Token", func(t *testing.T) {
		var sc SpotifyConfig
		if err := sc.Update(&oauth2.Token{}); err == nil {
			t.Error("expected error for empty token")
		}
		if sc.Token() != nil {
			t.Error("expected nil token without access token")
		}
	})
}
