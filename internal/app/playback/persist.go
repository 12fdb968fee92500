package playback

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/domain/track"
)

const persistTimeout = 5 * time.Second

// PersistedState is the subset of the store that survives a restart.
type PersistedState struct {
	Volume     float64
	Queue      []track.Track
	QueueIndex int
}

// Persister reads and writes PersistedState.
// Load returns (nil, nil) when nothing has been stored yet.
type Persister interface {
	Load(ctx context.Context) (*PersistedState, error)
	Save(ctx context.Context, state PersistedState) error
}

func (s *Store) restore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	state, err := s.persister.Load(ctx)
	if err != nil {
		zlog.Warn().Msgf("playback: failed to load persisted state, starting empty: %v", err)
		return
	}
	if state == nil {
		return
	}

	s.mutate(func() {
		s.volume = ClampUnit(state.Volume)
		if len(state.Queue) == 0 {
			return
		}
		s.queue = track.NewEntries(state.Queue)
		s.requested = StatePaused
		s.activateLocked(Clamp(state.QueueIndex, 0, len(s.queue)-1))
	})

	zlog.Info().Msgf("playback: restored state: volume=%.2f queue=%d index=%d",
		s.Volume(), len(state.Queue), s.CurrentIndex())
}

func (s *Store) persist(c Change) {
	state := PersistedState{
		Volume:     c.State.Volume,
		Queue:      track.Tracks(c.State.Queue),
		QueueIndex: c.State.CurrentIndex,
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.persister.Save(ctx, state); err != nil {
		zlog.Warn().Msgf("playback: failed to persist state: %v", err)
	}
}
