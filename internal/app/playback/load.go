package playback

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// ErrSuperseded is reported by a Load whose result arrived after a newer load started.
var ErrSuperseded = errors.New("load superseded by a newer one")

// Resolver turns a track ID into a currently valid playable URL.
type Resolver interface {
	Resolve(ctx context.Context, trackID string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, trackID string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, trackID string) (string, error) {
	return f(ctx, trackID)
}

// Load tracks one asynchronous URL resolution started by a command.
// A nil *Load means the command did not start a load.
type Load struct {
	TrackID    string
	Generation uint64

	done chan struct{}
	err  error
}

func newLoad(trackID string, generation uint64) *Load {
	return &Load{
		TrackID:    trackID,
		Generation: generation,
		done:       make(chan struct{}),
	}
}

func (l *Load) finish(err error) {
	l.err = err
	close(l.done)
}

// Done returns a channel closed once the resolution settled.
func (l *Load) Done() <-chan struct{} {
	if l == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.done
}

// Wait blocks until the resolution settled and returns its outcome:
// nil on success, ErrSuperseded if a newer load won, or the resolver error.
func (l *Load) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// activateLocked makes the entry at index current and starts resolving it.
// Requested state is left to the caller.
func (s *Store) activateLocked(index int) *Load {
	s.currentIndex = index
	entry := s.queue[index]

	if s.cancelResolve != nil {
		s.cancelResolve()
		s.cancelResolve = nil
	}
	s.generation++

	s.src = ""
	s.requestedSeek = nil
	s.currentTime = 0
	s.duration = entry.Track.Duration.Seconds()
	s.loading = true
	s.started = false
	s.reported = StatePaused
	s.clearErrorLocked()

	load := newLoad(entry.Track.ID, s.generation)
	if s.closed {
		load.finish(context.Canceled)
		return load
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if s.config.ResolveTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.config.ResolveTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	s.cancelResolve = cancel

	zlog.Debug().Msgf("playback: activating entry: index=%d track=%s generation=%d", index, entry.Track.ID, s.generation)

	s.wg.Add(1)
	go s.resolve(ctx, cancel, entry, load)
	return load
}

func (s *Store) resolve(ctx context.Context, cancel context.CancelFunc, entry track.QueueEntry, load *Load) {
	defer s.wg.Done()
	defer cancel()

	url, err := s.resolver.Resolve(ctx, entry.Track.ID)
	if err == nil && url == "" {
		err = errors.Newf("empty url for track %s", entry.Track.ID)
	}

	var outcome error
	s.mutate(func() {
		if s.closed || load.Generation != s.generation {
			zlog.Debug().Msgf("playback: dropping stale resolution: track=%s generation=%d current=%d",
				entry.Track.ID, load.Generation, s.generation)
			outcome = ErrSuperseded
			return
		}
		s.cancelResolve = nil

		if err != nil {
			zlog.Warn().Msgf("playback: failed to resolve track: track=%s err=%v", entry.Track.ID, err)
			s.loading = false
			s.reported = StatePaused
			s.errKind = ErrorResolution
			s.errMessage = errors.Wrapf(err, "cannot play %q", entry.Track.Name).Error()
			outcome = err
			return
		}

		zlog.Debug().Msgf("playback: track resolved: track=%s url=%s", entry.Track.ID, url)
		s.src = url
	})

	load.finish(outcome)
}
