package playback

import (
	"math"
	"slices"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// QueueSet replaces the queue and starts playing the entry at startAt
// (clamped into range). An empty tracks list is equivalent to Stop.
func (s *Store) QueueSet(tracks []track.Track, startAt int) *Load {
	if len(tracks) == 0 {
		s.Stop()
		return nil
	}

	var load *Load
	s.mutate(func() {
		s.queue = track.NewEntries(tracks)
		s.requested = StatePlaying
		load = s.activateLocked(Clamp(startAt, 0, len(s.queue)-1))
	})
	return load
}

// QueuePush appends a track. On an empty queue the pushed track starts playing.
func (s *Store) QueuePush(t track.Track) *Load {
	var load *Load
	s.mutate(func() {
		wasEmpty := !s.hasCurrentLocked()
		s.queue = append(s.queue, track.NewEntry(t))
		if wasEmpty {
			s.requested = StatePlaying
			load = s.activateLocked(0)
		}
	})
	return load
}

// QueueRemove removes the entry at index, keeping the current index on the
// same logical entry. Removing the current entry advances to the next one;
// if it was the last of several the new last entry becomes current and
// paused, and if it was the only one the store goes idle.
func (s *Store) QueueRemove(index int) *Load {
	var load *Load
	s.mutate(func() {
		if index < 0 || index >= len(s.queue) {
			zlog.Debug().Msgf("playback: remove ignored, index out of range: index=%d len=%d", index, len(s.queue))
			return
		}

		switch {
		case index < s.currentIndex:
			s.queue = slices.Delete(s.queue, index, index+1)
			s.currentIndex--
		case index > s.currentIndex:
			s.queue = slices.Delete(s.queue, index, index+1)
		case len(s.queue) == 1:
			s.stopLocked()
		case index < len(s.queue)-1:
			s.queue = slices.Delete(s.queue, index, index+1)
			load = s.activateLocked(index)
		default:
			s.queue = slices.Delete(s.queue, index, index+1)
			s.requested = StatePaused
			load = s.activateLocked(index - 1)
		}
	})
	return load
}

// QueueSkip moves to the next entry. No-op at the end of the queue.
func (s *Store) QueueSkip() *Load {
	var load *Load
	s.mutate(func() {
		if !s.hasCurrentLocked() || s.currentIndex+1 >= len(s.queue) {
			zlog.Debug().Msg("playback: skip ignored at end of queue")
			return
		}
		load = s.activateLocked(s.currentIndex + 1)
	})
	return load
}

// QueuePrev moves to the previous entry. No-op at the start of the queue.
func (s *Store) QueuePrev() *Load {
	var load *Load
	s.mutate(func() {
		if !s.hasCurrentLocked() || s.currentIndex == 0 {
			zlog.Debug().Msg("playback: prev ignored at start of queue")
			return
		}
		load = s.activateLocked(s.currentIndex - 1)
	})
	return load
}

// QueueJump makes the entry at index current and plays it. No-op if out of range.
func (s *Store) QueueJump(index int) *Load {
	var load *Load
	s.mutate(func() {
		if index < 0 || index >= len(s.queue) {
			zlog.Debug().Msgf("playback: jump ignored, index out of range: index=%d len=%d", index, len(s.queue))
			return
		}
		s.requested = StatePlaying
		load = s.activateLocked(index)
	})
	return load
}

// Play requests playback if a track is current.
func (s *Store) Play() {
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			zlog.Debug().Msg("playback: play ignored, no current track")
			return
		}
		s.requested = StatePlaying
	})
}

// Pause requests the paused state.
func (s *Store) Pause() {
	s.mutate(func() {
		s.requested = StatePaused
	})
}

// TogglePlay flips the requested state.
func (s *Store) TogglePlay() {
	s.mutate(func() {
		if s.requested == StatePlaying {
			s.requested = StatePaused
			return
		}
		if s.hasCurrentLocked() {
			s.requested = StatePlaying
		}
	})
}

// Stop clears the queue and returns to idle.
func (s *Store) Stop() {
	s.mutate(s.stopLocked)
}

func (s *Store) stopLocked() {
	if s.cancelResolve != nil {
		s.cancelResolve()
		s.cancelResolve = nil
	}
	s.generation++

	s.queue = nil
	s.currentIndex = 0
	s.src = ""
	s.requestedSeek = nil
	s.currentTime = 0
	s.duration = 0
	s.loading = false
	s.started = false
	s.requested = StatePaused
	s.reported = StatePaused
	s.clearErrorLocked()
}

// Seek records a seek request clamped to [0, duration].
// When the duration is not known yet only the lower bound applies.
func (s *Store) Seek(seconds float64) {
	s.mutate(func() {
		if !s.hasCurrentLocked() {
			zlog.Debug().Msg("playback: seek ignored, no current track")
			return
		}
		if math.IsNaN(seconds) {
			return
		}
		pos := max(seconds, 0)
		if s.duration > 0 {
			pos = Clamp(seconds, 0, s.duration)
		}
		s.requestedSeek = &pos
	})
}

// EndSeek clears the pending seek once position was applied to the native
// handle. A newer seek recorded in the meantime stays pending.
func (s *Store) EndSeek(position float64) {
	s.mutate(func() {
		if s.requestedSeek != nil && *s.requestedSeek == position {
			s.requestedSeek = nil
		}
	})
}

// SetVolume stores the volume clamped to [0, 1].
func (s *Store) SetVolume(fraction float64) {
	s.mutate(func() {
		s.volume = ClampUnit(fraction)
	})
}
