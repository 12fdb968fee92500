package nowplaying

import (
	zlog "github.com/rs/zerolog/log"
)

// LogSurface writes metadata and state changes to the application log.
// It originates no actions.
type LogSurface struct {
	handlers handlerSet
}

// NewLogSurface creates a log surface.
func NewLogSurface() *LogSurface {
	return &LogSurface{}
}

func (s *LogSurface) Name() string { return "log" }

func (s *LogSurface) SetMetadata(m *Metadata) {
	if m == nil {
		zlog.Info().Msg("now playing: cleared")
		return
	}
	zlog.Info().Msgf("now playing: title=%q artist=%q album=%q duration=%s art=%s",
		m.Title, m.Artist, m.Album, m.Duration, m.ArtURL())
}

func (s *LogSurface) SetPlaybackState(state SessionState) {
	zlog.Info().Msgf("now playing: state=%s", state)
}

func (s *LogSurface) SetActionHandler(action Action, handler ActionHandler) {
	s.handlers.set(action, handler)
}
