package nowplaying

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/infra/config"
	"github.com/osa030/tapedeck/internal/infra/desktop"
	"github.com/osa030/tapedeck/internal/infra/lastfm"
	"github.com/osa030/tapedeck/internal/infra/mpris"
	"github.com/osa030/tapedeck/internal/infra/spotify"
)

// MPRISSettings configures an mpris surface.
type MPRISSettings struct {
	Name     string `mapstructure:"name" default:"tapedeck" validate:"required"`
	Identity string `mapstructure:"identity" default:"Tapedeck" validate:"required"`
}

// DesktopSettings configures a desktop surface.
type DesktopSettings struct {
	AppName string `mapstructure:"app_name" default:"Tapedeck"`
	Icon    string `mapstructure:"icon"`
}

// LastFmSettings configures a lastfm surface.
type LastFmSettings struct {
	APIKey     string `mapstructure:"api_key" validate:"required"`
	APISecret  string `mapstructure:"api_secret" validate:"required"`
	SessionKey string `mapstructure:"session_key" validate:"required"`
}

// SurfaceInfo describes a surface type.
type SurfaceInfo struct {
	Type        string
	Description string
}

// SurfaceTypes lists the configurable surface types.
func SurfaceTypes() []SurfaceInfo {
	return []SurfaceInfo{
		{Type: config.SurfaceLog, Description: "Writes now-playing changes to the log"},
		{Type: config.SurfaceMPRIS, Description: "MPRIS2 player on the D-Bus session bus (media keys, lock screen)"},
		{Type: config.SurfaceDesktop, Description: "Desktop notification when a track starts"},
		{Type: config.SurfaceLastFm, Description: "Last.fm now-playing announcements"},
	}
}

// NewSurfacesFromConfig creates the surfaces listed in the configuration.
// Surfaces created before a failure are closed.
func NewSurfacesFromConfig(cfg *config.Config) ([]Surface, error) {
	var surfaces []Surface

	for i, scfg := range cfg.NowPlaying.Surfaces {
		zlog.Debug().Msgf("creating now-playing surface: index=%d type=%s", i+1, scfg.Type)

		surface, err := newSurface(scfg)
		if err != nil {
			closeSurfaces(surfaces)
			return nil, errors.Wrapf(err, "failed to create surface (index %d, type %s)", i, scfg.Type)
		}
		surfaces = append(surfaces, surface)

		zlog.Info().Msgf("registered now-playing surface: index=%d type=%s", i+1, scfg.Type)
	}

	return surfaces, nil
}

func newSurface(scfg config.SurfaceConfig) (Surface, error) {
	switch scfg.Type {
	case config.SurfaceLog:
		return NewLogSurface(), nil

	case config.SurfaceMPRIS:
		var settings MPRISSettings
		if err := decodeSettings(scfg.Settings, &settings); err != nil {
			return nil, err
		}
		server, err := mpris.Connect(settings.Name, settings.Identity)
		if err != nil {
			return nil, err
		}
		return NewMPRISSurface(server), nil

	case config.SurfaceDesktop:
		var settings DesktopSettings
		if err := decodeSettings(scfg.Settings, &settings); err != nil {
			return nil, err
		}
		return NewDesktopSurface(desktop.New(settings.AppName, settings.Icon)), nil

	case config.SurfaceLastFm:
		var settings LastFmSettings
		if err := decodeSettings(scfg.Settings, &settings); err != nil {
			return nil, err
		}
		client, err := lastfm.New(lastfm.Config{
			APIKey:     settings.APIKey,
			APISecret:  settings.APISecret,
			SessionKey: settings.SessionKey,
		})
		if err != nil {
			return nil, err
		}
		return NewLastFmSurface(client), nil

	default:
		return nil, errors.Newf("unsupported surface type: %s", scfg.Type)
	}
}

// NewArtworkFinderFromConfig creates the artwork lookup chain, Spotify first.
// It returns nil when no lookup is configured.
func NewArtworkFinderFromConfig(ctx context.Context, cfg *config.Config) (ArtworkFinder, error) {
	var finders Finders

	if cfg.SpotifyEnabled() {
		sp := cfg.NowPlaying.Artwork.Spotify
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     sp.ClientID,
			ClientSecret: sp.ClientSecret,
			Market:       sp.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create spotify client")
		}
		finders = append(finders, client)
	}

	if key := cfg.NowPlaying.Artwork.LastFm.APIKey; key != "" {
		client, err := lastfm.New(lastfm.Config{APIKey: key})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create last.fm client")
		}
		finders = append(finders, LastFmArtwork{Client: client})
	}

	if len(finders) == 0 {
		return nil, nil
	}
	zlog.Info().Msgf("artwork lookup enabled: finders=%d", len(finders))
	return finders, nil
}

// decodeSettings decodes free-form surface settings into out, then applies
// defaults and validation.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func closeSurfaces(surfaces []Surface) {
	for _, s := range surfaces {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
