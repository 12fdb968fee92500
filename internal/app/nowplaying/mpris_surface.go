package nowplaying

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/infra/mpris"
)

// MPRISPlayer is the subset of *mpris.Server used by MPRISSurface.
type MPRISPlayer interface {
	OnCommand(handler mpris.CommandHandler)
	SetMetadata(m *mpris.Metadata)
	SetPlaybackStatus(status mpris.PlaybackStatus)
	Close() error
}

// MPRISSurface publishes the now-playing state over MPRIS so desktop media
// keys and lock screens can show and control playback.
type MPRISSurface struct {
	player   MPRISPlayer
	handlers handlerSet

	mu    sync.Mutex
	state SessionState
}

// NewMPRISSurface creates a surface over player and starts routing its commands.
func NewMPRISSurface(player MPRISPlayer) *MPRISSurface {
	s := &MPRISSurface{
		player: player,
		state:  SessionNone,
	}
	player.OnCommand(s.onCommand)
	return s
}

func (s *MPRISSurface) Name() string { return "mpris" }

func (s *MPRISSurface) SetMetadata(m *Metadata) {
	if m == nil {
		s.player.SetMetadata(nil)
		return
	}
	s.player.SetMetadata(&mpris.Metadata{
		TrackID: m.TrackID,
		Title:   m.Title,
		Artist:  m.Artist,
		Album:   m.Album,
		ArtURL:  m.ArtURL(),
		Length:  m.Duration,
	})
}

func (s *MPRISSurface) SetPlaybackState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	switch state {
	case SessionPlaying:
		s.player.SetPlaybackStatus(mpris.StatusPlaying)
	case SessionPaused:
		s.player.SetPlaybackStatus(mpris.StatusPaused)
	default:
		s.player.SetPlaybackStatus(mpris.StatusStopped)
	}
}

func (s *MPRISSurface) SetActionHandler(action Action, handler ActionHandler) {
	s.handlers.set(action, handler)
}

// Close stops routing commands and releases the player.
func (s *MPRISSurface) Close() error {
	s.player.OnCommand(nil)
	return s.player.Close()
}

func (s *MPRISSurface) onCommand(cmd mpris.Command, arg time.Duration) {
	d, ok := s.details(cmd, arg)
	if !ok {
		return
	}
	if !s.handlers.call(d) {
		zlog.Debug().Msgf("mpris surface: no handler for %s", d.Action)
	}
}

// details maps an MPRIS command to an action.
func (s *MPRISSurface) details(cmd mpris.Command, arg time.Duration) (ActionDetails, bool) {
	switch cmd {
	case mpris.CommandPlay:
		return ActionDetails{Action: ActionPlay}, true
	case mpris.CommandPause:
		return ActionDetails{Action: ActionPause}, true
	case mpris.CommandPlayPause:
		s.mu.Lock()
		playing := s.state == SessionPlaying
		s.mu.Unlock()
		if playing {
			return ActionDetails{Action: ActionPause}, true
		}
		return ActionDetails{Action: ActionPlay}, true
	case mpris.CommandStop:
		return ActionDetails{Action: ActionStop}, true
	case mpris.CommandNext:
		return ActionDetails{Action: ActionNextTrack}, true
	case mpris.CommandPrevious:
		return ActionDetails{Action: ActionPreviousTrack}, true
	case mpris.CommandSeek:
		switch {
		case arg > 0:
			return ActionDetails{Action: ActionSeekForward, SeekOffset: arg.Seconds()}, true
		case arg < 0:
			return ActionDetails{Action: ActionSeekBackward, SeekOffset: -arg.Seconds()}, true
		}
		return ActionDetails{}, false
	case mpris.CommandSetPosition:
		return ActionDetails{Action: ActionSeekTo, SeekTime: arg.Seconds()}, true
	default:
		return ActionDetails{}, false
	}
}
