package nowplaying

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/infra/lastfm"
)

const lastfmTimeout = 10 * time.Second

// NowPlayingUpdater announces the track being listened to.
type NowPlayingUpdater interface {
	UpdateNowPlaying(ctx context.Context, np lastfm.NowPlaying) error
}

// LastFmSurface announces every track that starts playing to Last.fm.
// It originates no actions.
type LastFmSurface struct {
	client   NowPlayingUpdater
	handlers handlerSet
	announce announcer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLastFmSurface creates a Last.fm surface.
func NewLastFmSurface(client NowPlayingUpdater) *LastFmSurface {
	ctx, cancel := context.WithCancel(context.Background())
	return &LastFmSurface{
		client: client,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *LastFmSurface) Name() string { return "lastfm" }

func (s *LastFmSurface) SetMetadata(m *Metadata) {
	s.update(s.announce.setMetadata(m))
}

func (s *LastFmSurface) SetPlaybackState(state SessionState) {
	s.update(s.announce.setState(state))
}

func (s *LastFmSurface) SetActionHandler(action Action, handler ActionHandler) {
	s.handlers.set(action, handler)
}

// Close cancels pending announcements and waits for them.
func (s *LastFmSurface) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *LastFmSurface) update(m *Metadata) {
	if m == nil || m.Artist == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, lastfmTimeout)
		defer cancel()

		err := s.client.UpdateNowPlaying(ctx, lastfm.NowPlaying{
			Track:    m.Title,
			Artist:   m.Artist,
			Album:    m.Album,
			Duration: m.Duration,
		})
		if err != nil {
			zlog.Warn().Msgf("lastfm surface: failed to update now playing: track=%s err=%v", m.TrackID, err)
			return
		}
		zlog.Debug().Msgf("lastfm surface: now playing: track=%s", m.TrackID)
	}()
}
