package playback

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// Config holds store configuration.
type Config struct {
	DefaultVolume  float64       // Volume used when nothing was persisted
	ResolveTimeout time.Duration // Upper bound for one URL resolution (0 = none)
}

// Store is the single source of truth for what should be playing.
//
// Only the store's own command and event-intake methods mutate its state.
// Every method is atomic with respect to readers, and listeners observe
// commits in order.
type Store struct {
	mu sync.RWMutex

	// Queue
	queue        []track.QueueEntry
	currentIndex int

	// Transport
	src           string
	volume        float64
	requested     State
	reported      State
	requestedSeek *float64
	currentTime   float64
	duration      float64
	loading       bool
	started       bool // OnPlaying seen since the current activation

	// Errors
	errKind    ErrorKind
	errMessage string

	// In-flight resolution
	generation    uint64
	cancelResolve context.CancelFunc

	resolver  Resolver
	persister Persister
	config    Config

	listeners registry
	wg        sync.WaitGroup
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStore creates a store and restores persisted state if a persister is given.
// The restored current entry is activated paused.
func NewStore(ctx context.Context, config Config, resolver Resolver, persister Persister) (*Store, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Store{
		volume:    ClampUnit(config.DefaultVolume),
		resolver:  resolver,
		persister: persister,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
	}

	if persister != nil {
		s.restore(ctx)
		s.Subscribe(FieldVolume|FieldQueue|FieldCurrentIndex, s.persist)
	}

	return s, nil
}

// Close cancels in-flight resolutions, waits for them and drops all listeners.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.listeners.close()
}

// Subscribe registers fn for changes touching any of fields.
// The returned function removes the registration.
func (s *Store) Subscribe(fields Field, fn Listener) (unsubscribe func()) {
	id := s.listeners.subscribe(fields, fn)
	return func() {
		s.listeners.unsubscribe(id)
	}
}

// ListenerCount returns the number of registered listeners.
func (s *Store) ListenerCount() int {
	return s.listeners.count()
}

// mutate runs fn under the write lock and publishes the resulting change.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	before := s.snapshotLocked()
	fn()
	after := s.snapshotLocked()
	if changed := diff(before, after); changed != FieldNone {
		s.listeners.enqueue(Change{Fields: changed, State: after})
	}
	s.mu.Unlock()

	s.listeners.drain()
}

func (s *Store) snapshotLocked() Snapshot {
	var seek *float64
	if s.requestedSeek != nil {
		v := *s.requestedSeek
		seek = &v
	}
	return Snapshot{
		Queue:          slices.Clone(s.queue),
		CurrentIndex:   s.currentIndex,
		Src:            s.src,
		Volume:         s.volume,
		RequestedState: s.requested,
		ReportedState:  s.reported,
		RequestedSeek:  seek,
		CurrentTime:    s.currentTime,
		Duration:       s.duration,
		Loading:        s.loading,
		ErrorKind:      s.errKind,
		ErrorMessage:   s.errMessage,
		Generation:     s.generation,
		started:        s.started,
	}
}

func (s *Store) hasCurrentLocked() bool {
	return len(s.queue) > 0
}

func (s *Store) clearErrorLocked() {
	s.errKind = ErrorNone
	s.errMessage = ""
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Queue returns a copy of the queue.
func (s *Store) Queue() []track.QueueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.queue)
}

// CurrentIndex returns the index of the current entry (0 when the queue is empty).
func (s *Store) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// CurrentEntry returns the current entry, if any.
func (s *Store) CurrentEntry() (track.QueueEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasCurrentLocked() {
		return track.QueueEntry{}, false
	}
	return s.queue[s.currentIndex], true
}

// Src returns the resolved playable URL of the current entry, or "" while unresolved.
func (s *Store) Src() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.src
}

// Volume returns the output volume in [0, 1].
func (s *Store) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// RequestedState returns the most recent transport intent.
func (s *Store) RequestedState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requested
}

// ReportedState returns the transport state confirmed by the native handle.
func (s *Store) ReportedState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reported
}

// RequestedSeek returns the pending seek position.
func (s *Store) RequestedSeek() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.requestedSeek == nil {
		return 0, false
	}
	return *s.requestedSeek, true
}

// CurrentTime returns the last known playback position in seconds.
func (s *Store) CurrentTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTime
}

// Duration returns the duration of the current track in seconds.
func (s *Store) Duration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

// IsLoading reports whether the current track is resolving or loading.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// IsError reports whether the last load failed.
func (s *Store) IsError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errKind != ErrorNone
}

// ErrorKind returns the kind of the current error.
func (s *Store) ErrorKind() ErrorKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errKind
}

// ErrorMessage returns a human-readable description of the current error.
func (s *Store) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMessage
}

// Phase returns the derived state machine position.
func (s *Store) Phase() Phase {
	return s.Snapshot().Phase()
}
