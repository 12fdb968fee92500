package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TAPEDECK_TOKEN", "LIBRARY_URL", "PORT",
		"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET",
		"LASTFM_API_KEY", "LASTFM_API_SECRET", "LASTFM_SESSION_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tapedeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("library:\n  url: http://localhost:4533\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "beep", cfg.Playback.Backend)
	assert.Equal(t, 0.8, cfg.Playback.DefaultVolume)
	assert.Equal(t, 10*time.Second, cfg.SeekStep())
	assert.Equal(t, 250*time.Millisecond, cfg.TimeUpdateInterval())
	assert.Equal(t, 10*time.Second, cfg.ResolveTimeout())
	assert.Equal(t, "data/tapedeck.db", cfg.Storage.Path)
	assert.Equal(t, "JP", cfg.NowPlaying.Artwork.Spotify.Market)
	assert.False(t, cfg.SpotifyEnabled())
	assert.Empty(t, cfg.Control.Token)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TAPEDECK_TOKEN", "secret")
	t.Setenv("LIBRARY_URL", "http://library:4533")
	t.Setenv("PORT", "9090")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "shh")
	t.Setenv("LASTFM_API_KEY", "fm-key")
	t.Setenv("LASTFM_SESSION_KEY", "fm-session")

	data := []byte(`
server:
  addr: 127.0.0.1:8080
library:
  url: http://localhost:4533
nowplaying:
  surfaces:
    - type: log
    - type: lastfm
      settings:
        api_secret: from-file
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Control.Token)
	assert.Equal(t, "http://library:4533", cfg.Library.URL)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.True(t, cfg.SpotifyEnabled())
	assert.Equal(t, "fm-key", cfg.NowPlaying.Artwork.LastFm.APIKey)

	require.Len(t, cfg.NowPlaying.Surfaces, 2)
	assert.Nil(t, cfg.NowPlaying.Surfaces[0].Settings)
	assert.Equal(t, map[string]any{
		"api_key":     "fm-key",
		"api_secret":  "from-file",
		"session_key": "fm-session",
	}, cfg.NowPlaying.Surfaces[1].Settings)
}

func TestParse_PortWithoutAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")

	cfg, err := Parse([]byte("library:\n  url: http://localhost:4533\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:  ServerConfig{Addr: ":8080"},
			Library: LibraryConfig{URL: "http://localhost:4533", ResolveTimeoutMs: 1000},
			Playback: PlaybackConfig{
				Backend:              "null",
				DefaultVolume:        0.5,
				SeekStepSec:          10,
				TimeUpdateIntervalMs: 250,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing library url",
			mutate:  func(c *Config) { c.Library.URL = "" },
			wantErr: true,
			errMsg:  "URL",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Playback.Backend = "vlc" },
			wantErr: true,
			errMsg:  "Backend",
		},
		{
			name:    "volume above one",
			mutate:  func(c *Config) { c.Playback.DefaultVolume = 1.5 },
			wantErr: true,
			errMsg:  "DefaultVolume",
		},
		{
			name:    "spotify id without secret",
			mutate:  func(c *Config) { c.NowPlaying.Artwork.Spotify.ClientID = "id" },
			wantErr: true,
			errMsg:  "ClientSecret",
		},
		{
			name: "invalid market length",
			mutate: func(c *Config) {
				c.NowPlaying.Artwork.Spotify.Market = "JAPAN"
			},
			wantErr: true,
			errMsg:  "Market",
		},
		{
			name: "unknown surface type",
			mutate: func(c *Config) {
				c.NowPlaying.Surfaces = []SurfaceConfig{{Type: "tray"}}
			},
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "invalid addr",
			mutate:  func(c *Config) { c.Server.Addr = "8080" },
			wantErr: true,
			errMsg:  "invalid server addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}
