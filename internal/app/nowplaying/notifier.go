package nowplaying

import (
	"context"
	"io"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/app/playback"
	"github.com/osa030/tapedeck/internal/domain/track"
)

// DefaultSeekStep is used by seekbackward/seekforward when neither the
// action nor the options specify a step.
const DefaultSeekStep = 10 * time.Second

const artworkTimeout = 10 * time.Second

// watchedFields are the store fields projected onto the surfaces.
const watchedFields = playback.FieldCurrentEntry |
	playback.FieldReportedState |
	playback.FieldDuration

// Options configures a Notifier.
type Options struct {
	SeekStep time.Duration // Step for seekbackward/seekforward
	Artwork  ArtworkFinder // Optional lookup for tracks without artwork
}

// Notifier projects the current track and reported transport state onto a
// set of surfaces and maps their actions to store commands.
type Notifier struct {
	surfaces []Surface
	seekStep time.Duration
	artwork  *artworkCache

	mu          sync.Mutex
	store       *playback.Store
	unsubscribe func()
	metadata    *Metadata
	state       SessionState
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a notifier over surfaces. Call Attach to bind it to a store.
func New(surfaces []Surface, opts Options) *Notifier {
	if opts.SeekStep <= 0 {
		opts.SeekStep = DefaultSeekStep
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		surfaces: surfaces,
		seekStep: opts.SeekStep,
		state:    SessionNone,
		ctx:      ctx,
		cancel:   cancel,
	}
	if opts.Artwork != nil {
		n.artwork = newArtworkCache(opts.Artwork)
	}
	return n
}

// Surfaces returns the surfaces the notifier drives.
func (n *Notifier) Surfaces() []Surface {
	return n.surfaces
}

// Attach binds the notifier to store. Action handlers are only re-registered
// when store differs from the currently attached one.
func (n *Notifier) Attach(store *playback.Store) {
	n.mu.Lock()
	if n.closed || store == n.store {
		n.mu.Unlock()
		return
	}
	if n.unsubscribe != nil {
		n.unsubscribe()
	}
	n.store = store
	n.registerLocked(store)
	n.mu.Unlock()

	zlog.Debug().Msgf("nowplaying: attached to store: surfaces=%d", len(n.surfaces))

	unsubscribe := store.Subscribe(watchedFields, n.onChange)
	n.mu.Lock()
	n.unsubscribe = unsubscribe
	n.mu.Unlock()

	n.project(store.Snapshot())
}

// Close clears every action handler, the metadata and the session state,
// then closes the surfaces that hold resources.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	if n.unsubscribe != nil {
		n.unsubscribe()
		n.unsubscribe = nil
	}
	n.store = nil

	for _, s := range n.surfaces {
		for _, a := range Actions {
			s.SetActionHandler(a, nil)
		}
		s.SetMetadata(nil)
		s.SetPlaybackState(SessionNone)
	}
	n.metadata = nil
	n.state = SessionNone
	n.mu.Unlock()

	n.cancel()
	n.wg.Wait()

	for _, s := range n.surfaces {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				zlog.Warn().Msgf("nowplaying: failed to close surface %s: %v", s.Name(), err)
			}
		}
	}

	zlog.Debug().Msg("nowplaying: closed")
}

// registerLocked clears all actions on every surface and binds them to store.
func (n *Notifier) registerLocked(store *playback.Store) {
	handlers := n.handlers(store)
	for _, s := range n.surfaces {
		for _, a := range Actions {
			s.SetActionHandler(a, nil)
		}
		for _, a := range Actions {
			s.SetActionHandler(a, handlers[a])
		}
	}
}

func (n *Notifier) handlers(store *playback.Store) map[Action]ActionHandler {
	step := func(d ActionDetails) float64 {
		if d.SeekOffset > 0 {
			return d.SeekOffset
		}
		return n.seekStep.Seconds()
	}

	return map[Action]ActionHandler{
		ActionPlay:          func(ActionDetails) { store.Play() },
		ActionPause:         func(ActionDetails) { store.Pause() },
		ActionStop:          func(ActionDetails) { store.Stop() },
		ActionPreviousTrack: func(ActionDetails) { store.QueuePrev() },
		ActionNextTrack:     func(ActionDetails) { store.QueueSkip() },
		ActionSeekTo:        func(d ActionDetails) { store.Seek(d.SeekTime) },
		ActionSeekBackward: func(d ActionDetails) {
			store.Seek(store.CurrentTime() - step(d))
		},
		ActionSeekForward: func(d ActionDetails) {
			store.Seek(store.CurrentTime() + step(d))
		},
	}
}

func (n *Notifier) onChange(c playback.Change) {
	n.project(c.State)
}

// project pushes metadata and session state to the surfaces when they changed.
func (n *Notifier) project(state playback.Snapshot) {
	entry, ok := state.Current()

	var metadata *Metadata
	session := SessionNone
	if ok {
		metadata = n.metadataFor(entry.Track, state.Duration)
		session = SessionPaused
		if state.ReportedState == playback.StatePlaying {
			session = SessionPlaying
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.pushLocked(metadata, session)

	if ok && metadata.ArtURL() == "" && n.artwork != nil {
		n.lookupArtworkLocked(entry.Track)
	}
}

func (n *Notifier) pushLocked(metadata *Metadata, session SessionState) {
	if !metadata.Equal(n.metadata) {
		zlog.Debug().Msgf("nowplaying: metadata: title=%q artist=%q", title(metadata), artist(metadata))
		for _, s := range n.surfaces {
			s.SetMetadata(metadata)
		}
		n.metadata = metadata
	}
	if session != n.state {
		zlog.Debug().Msgf("nowplaying: state: %s", session)
		for _, s := range n.surfaces {
			s.SetPlaybackState(session)
		}
		n.state = session
	}
}

func (n *Notifier) metadataFor(t track.Track, seconds float64) *Metadata {
	m := &Metadata{
		TrackID:  t.ID,
		Title:    t.Name,
		Artist:   t.Artist(),
		Album:    t.AlbumName(),
		Duration: t.Duration,
	}
	if seconds > 0 {
		m.Duration = time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
	}

	art := t.ArtURL
	if art == "" && n.artwork != nil {
		art, _ = n.artwork.get(t.ID)
	}
	if art != "" {
		m.Artwork = []Artwork{{Src: art, Sizes: ArtworkSize}}
	}
	return m
}

// lookupArtworkLocked resolves missing artwork in the background and
// re-pushes the metadata if the track is still current.
func (n *Notifier) lookupArtworkLocked(t track.Track) {
	if !n.artwork.begin(t.ID) {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(n.ctx, artworkTimeout)
		defer cancel()

		if !n.artwork.resolve(ctx, t) {
			return
		}

		n.mu.Lock()
		defer n.mu.Unlock()
		if n.closed || n.metadata == nil || n.metadata.TrackID != t.ID || n.store == nil {
			return
		}
		state := n.store.Snapshot()
		if entry, ok := state.Current(); ok && entry.Track.ID == t.ID {
			n.pushLocked(n.metadataFor(entry.Track, state.Duration), n.state)
		}
	}()
}

func title(m *Metadata) string {
	if m == nil {
		return ""
	}
	return m.Title
}

func artist(m *Metadata) string {
	if m == nil {
		return ""
	}
	return m.Artist
}
