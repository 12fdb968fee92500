package playback

import (
	"math"

	zlog "github.com/rs/zerolog/log"
)

// The On* methods receive native media events. Only the media binder calls them.

// OnTimeUpdate records the native playback position.
func (s *Store) OnTimeUpdate(seconds float64) {
	if math.IsNaN(seconds) || seconds < 0 {
		return
	}
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			return
		}
		s.currentTime = seconds
	})
}

// OnDurationChange records the duration once the native handle knows it.
func (s *Store) OnDurationChange(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return
	}
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			return
		}
		s.duration = seconds
	})
}

// OnEnded advances to the next entry. After the last one the queue is kept
// and its last entry is activated again, paused at the start.
func (s *Store) OnEnded() {
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			return
		}
		if s.currentIndex+1 < len(s.queue) {
			s.activateLocked(s.currentIndex + 1)
			return
		}
		zlog.Debug().Msg("playback: end of queue reached, rewinding last entry")
		s.requested = StatePaused
		s.activateLocked(s.currentIndex)
	})
}

// OnPlaying records that the native handle is playing.
func (s *Store) OnPlaying() {
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			return
		}
		s.reported = StatePlaying
		s.loading = false
		s.started = true
	})
}

// OnPaused records that the native handle is paused.
func (s *Store) OnPaused() {
	s.mutate(func() {
		s.reported = StatePaused
	})
}

// OnCanPlay records that the loaded source is playable.
func (s *Store) OnCanPlay() {
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			return
		}
		s.loading = false
	})
}

// OnLoadStart records that the native handle started loading a source.
// A new load always starts paused.
func (s *Store) OnLoadStart() {
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			return
		}
		s.loading = true
		s.reported = StatePaused
	})
}

// OnWaiting records that playback stalled for lack of data.
func (s *Store) OnWaiting() {
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			return
		}
		s.loading = true
	})
}

// OnEmptied records that the native handle dropped its source.
func (s *Store) OnEmptied() {
	s.mutate(func() {
		s.reported = StatePaused
	})
}

// OnError records a native playback error. The requested state is kept so
// that the same command can simply be issued again.
func (s *Store) OnError(message string) {
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			return
		}
		zlog.Warn().Msgf("playback: native playback error: index=%d message=%s", s.currentIndex, message)
		s.loading = false
		s.reported = StatePaused
		s.errKind = ErrorPlayback
		s.errMessage = message
	})
}
