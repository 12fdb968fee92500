// Package config provides configuration loading from YAML files.
package config

import (
	"net"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Surface types.
const (
	SurfaceLog     = "log"
	SurfaceMPRIS   = "mpris"
	SurfaceDesktop = "desktop"
	SurfaceLastFm  = "lastfm"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Control    ControlConfig    `yaml:"control"`
	Library    LibraryConfig    `yaml:"library"`
	Playback   PlaybackConfig   `yaml:"playback"`
	Storage    StorageConfig    `yaml:"storage"`
	NowPlaying NowPlayingConfig `yaml:"nowplaying"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ControlConfig represents control RPC configuration.
type ControlConfig struct {
	Token string `yaml:"token"` // Required in the X-Control-Token header when set
}

// LibraryConfig represents the media library that resolves track IDs to playable URLs.
type LibraryConfig struct {
	URL              string `yaml:"url" validate:"required,url"`
	ResolveTimeoutMs int    `yaml:"resolve_timeout_ms" default:"10000" validate:"gte=0,lte=120000"`
}

// PlaybackConfig represents playback configuration.
type PlaybackConfig struct {
	Backend              string  `yaml:"backend" default:"beep" validate:"oneof=beep mpv null"`
	DefaultVolume        float64 `yaml:"default_volume" default:"0.8" validate:"gte=0,lte=1"`
	SeekStepSec          int     `yaml:"seek_step_sec" default:"10" validate:"gte=1,lte=300"`
	TimeUpdateIntervalMs int     `yaml:"time_update_interval_ms" default:"250" validate:"gte=50,lte=5000"`
}

// StorageConfig represents persistence configuration.
type StorageConfig struct {
	Path     string `yaml:"path" default:"data/tapedeck.db"`
	Disabled bool   `yaml:"disabled"`
}

// NowPlayingConfig represents now-playing surface configuration.
type NowPlayingConfig struct {
	Artwork  ArtworkConfig   `yaml:"artwork"`
	Surfaces []SurfaceConfig `yaml:"surfaces" validate:"dive"`
}

// ArtworkConfig represents the artwork lookup used for tracks without artwork.
type ArtworkConfig struct {
	Spotify SpotifyConfig `yaml:"spotify"`
	LastFm  LastFmConfig  `yaml:"lastfm"`
}

// SpotifyConfig represents Spotify API configuration. Empty credentials disable the lookup.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// LastFmConfig represents Last.fm API configuration. An empty key disables the lookup.
type LastFmConfig struct {
	APIKey string `yaml:"api_key"`
}

// SurfaceConfig represents a single now-playing surface.
type SurfaceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=log mpris desktop lastfm"`
	Settings map[string]any `yaml:"settings"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML data, then applies environment
// overrides, defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TAPEDECK_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("LIBRARY_URL"); v != "" {
		c.Library.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		host, _, err := net.SplitHostPort(c.Server.Addr)
		if err != nil {
			host = ""
		}
		c.Server.Addr = net.JoinHostPort(host, v)
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.NowPlaying.Artwork.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.NowPlaying.Artwork.Spotify.ClientSecret = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.NowPlaying.Artwork.LastFm.APIKey = v
	}

	lastfmEnv := map[string]string{
		"api_key":     os.Getenv("LASTFM_API_KEY"),
		"api_secret":  os.Getenv("LASTFM_API_SECRET"),
		"session_key": os.Getenv("LASTFM_SESSION_KEY"),
	}
	for i := range c.NowPlaying.Surfaces {
		s := &c.NowPlaying.Surfaces[i]
		if s.Type != SurfaceLastFm {
			continue
		}
		for key, v := range lastfmEnv {
			if v == "" {
				continue
			}
			if s.Settings == nil {
				s.Settings = make(map[string]any)
			}
			s.Settings[key] = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return errors.Wrapf(err, "invalid server addr %q", c.Server.Addr)
	}

	return nil
}

// ResolveTimeout returns the library resolve timeout.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Library.ResolveTimeoutMs) * time.Millisecond
}

// SeekStep returns the step used by relative seeks.
func (c *Config) SeekStep() time.Duration {
	return time.Duration(c.Playback.SeekStepSec) * time.Second
}

// TimeUpdateInterval returns the period of native position updates.
func (c *Config) TimeUpdateInterval() time.Duration {
	return time.Duration(c.Playback.TimeUpdateIntervalMs) * time.Millisecond
}

// SpotifyEnabled reports whether Spotify credentials are configured.
func (c *Config) SpotifyEnabled() bool {
	s := c.NowPlaying.Artwork.Spotify
	return s.ClientID != "" && s.ClientSecret != ""
}
