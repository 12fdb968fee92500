package nowplaying

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/domain/track"
	"github.com/osa030/tapedeck/internal/infra/lastfm"
)

// ArtworkFinder looks up an artwork URL for a track that has none.
// It returns "" without error when nothing was found.
type ArtworkFinder interface {
	FindArtwork(ctx context.Context, t track.Track) (string, error)
}

// artworkCache remembers lookups by track ID, including misses, so every
// track is looked up at most once per process.
type artworkCache struct {
	finder ArtworkFinder

	mu       sync.Mutex
	urls     map[string]string
	inflight map[string]bool
}

func newArtworkCache(finder ArtworkFinder) *artworkCache {
	return &artworkCache{
		finder:   finder,
		urls:     make(map[string]string),
		inflight: make(map[string]bool),
	}
}

func (c *artworkCache) get(trackID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.urls[trackID]
	return url, ok
}

// begin reports whether the caller should start a lookup for trackID.
func (c *artworkCache) begin(trackID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, done := c.urls[trackID]; done || c.inflight[trackID] {
		return false
	}
	c.inflight[trackID] = true
	return true
}

// resolve runs the lookup and reports whether a URL was found.
// Failed lookups are not cached, so they are retried the next time the track is current.
func (c *artworkCache) resolve(ctx context.Context, t track.Track) bool {
	url, err := c.finder.FindArtwork(ctx, t)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, t.ID)

	if err != nil {
		zlog.Warn().Msgf("nowplaying: artwork lookup failed: track=%s err=%v", t.ID, err)
		return false
	}
	c.urls[t.ID] = url
	return url != ""
}

// Finders tries each finder in order and returns the first URL found.
type Finders []ArtworkFinder

// FindArtwork implements ArtworkFinder. An error is returned only when
// every finder failed.
func (f Finders) FindArtwork(ctx context.Context, t track.Track) (string, error) {
	var errs error
	failed := 0
	for _, finder := range f {
		url, err := finder.FindArtwork(ctx, t)
		if err != nil {
			errs = errors.CombineErrors(errs, err)
			failed++
			continue
		}
		if url != "" {
			return url, nil
		}
	}
	if failed > 0 && failed == len(f) {
		return "", errs
	}
	return "", nil
}

// TrackInfoGetter fetches track metadata from Last.fm.
type TrackInfoGetter interface {
	GetTrackInfo(ctx context.Context, trackName, artistName string) (*lastfm.TrackInfo, error)
}

// LastFmArtwork finds artwork through Last.fm track.getInfo.
type LastFmArtwork struct {
	Client TrackInfoGetter
}

// FindArtwork implements ArtworkFinder. Tracks without an artist are skipped.
func (l LastFmArtwork) FindArtwork(ctx context.Context, t track.Track) (string, error) {
	if t.Artist() == "" {
		return "", nil
	}
	info, err := l.Client.GetTrackInfo(ctx, t.Name, t.Artist())
	if err != nil {
		return "", err
	}
	return info.ImageURL, nil
}
