// Package media provides the native audio-output handle and its backends.
package media

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrClosed               = errors.New("output is closed")
	ErrNotLoaded            = errors.New("no source loaded")
	ErrUnsupportedFormat    = errors.New("unsupported audio format")
	ErrBackendUnavailable   = errors.New("backend is not available in this build")
	ErrUnknownBackend       = errors.New("unknown backend")
	defaultTimeUpdatePeriod = 250 * time.Millisecond
)

// eventBuffer bounds the number of undelivered events per output.
const eventBuffer = 64

// Output is a native media-output handle. Exactly one exists per session and
// only the media binder drives it.
type Output interface {
	// Load replaces the current source. An empty src unloads.
	// Every call, failed ones included, starts the next load sequence
	// (1, 2, ...) and events carry the sequence they were emitted for.
	Load(src string) error
	Play() error
	Pause() error
	SetCurrentTime(seconds float64) error
	CurrentTime() float64
	SetVolume(fraction float64) error
	// Duration returns 0 until the duration is known.
	Duration() float64
	// Events delivers native events in emission order.
	Events() <-chan Event
	Close() error
}

// EventType represents a native media event type.
type EventType int

const (
	EventLoadStart      EventType = iota // Started loading a source
	EventDurationChange                  // Duration became known or changed
	EventCanPlay                         // Source is playable
	EventPlaying                         // Playback started or resumed
	EventPause                           // Playback paused
	EventTimeUpdate                      // Playback position advanced
	EventWaiting                         // Playback stalled for lack of data
	EventEnded                           // Source played to its end
	EventEmptied                         // Source was unloaded
	EventError                           // Loading or decoding failed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventLoadStart:
		return "loadstart"
	case EventDurationChange:
		return "durationchange"
	case EventCanPlay:
		return "canplay"
	case EventPlaying:
		return "playing"
	case EventPause:
		return "pause"
	case EventTimeUpdate:
		return "timeupdate"
	case EventWaiting:
		return "waiting"
	case EventEnded:
		return "ended"
	case EventEmptied:
		return "emptied"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event represents a native media event.
type Event struct {
	Type     EventType
	Time     float64 // Position in seconds (timeupdate)
	Duration float64 // Duration in seconds (durationchange)
	Err      error   // Cause (error)
	Load     uint64  // Load sequence the event belongs to (0 before the first Load)
}

// emitter delivers events to a single consumer.
// Time updates are dropped when the consumer lags; every other event blocks
// until delivered or the emitter is closed.
type emitter struct {
	seq       atomic.Uint64
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func newEmitter() *emitter {
	return &emitter{
		ch:   make(chan Event, eventBuffer),
		done: make(chan struct{}),
	}
}

func (e *emitter) Events() <-chan Event {
	return e.ch
}

// beginLoad starts the next load sequence. Backends call it first thing in Load.
func (e *emitter) beginLoad() uint64 {
	return e.seq.Add(1)
}

// emit stamps ev with the current load sequence unless it already carries one.
func (e *emitter) emit(ev Event) {
	if ev.Load == 0 {
		ev.Load = e.seq.Load()
	}
	if ev.Type == EventTimeUpdate {
		select {
		case e.ch <- ev:
		case <-e.done:
		default:
		}
		return
	}
	select {
	case e.ch <- ev:
	case <-e.done:
	}
}

func (e *emitter) close() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}

func (e *emitter) closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
