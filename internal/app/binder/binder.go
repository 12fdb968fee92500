// Package binder connects the playback store to the native media output.
//
// The binder is the only code that issues commands to the output and the
// only code that receives its events. It applies the store's requested
// source, volume, transport state and seek position, and forwards every
// native event to the store's intake methods.
package binder

import (
	"context"
	"sync"
	"sync/atomic"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/app/playback"
	"github.com/osa030/tapedeck/internal/infra/media"
)

// watchedFields are the store fields the binder applies to the output.
const watchedFields = playback.FieldSrc |
	playback.FieldVolume |
	playback.FieldRequestedState |
	playback.FieldRequestedSeek

// Binder drives one media.Output from one playback.Store.
type Binder struct {
	store  *playback.Store
	output media.Output

	mu         sync.Mutex
	src        string         // Source currently loaded into the output
	generation uint64         // Store activation src was loaded for
	ready      bool           // Output reported canplay for src
	applied    playback.State // Last transport command issued for src
	volume     float64        // Last volume applied, -1 before the first one

	loads atomic.Uint64 // Load calls issued; events from older loads are dropped

	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
}

// New creates a binder. It does nothing until Start is called.
func New(store *playback.Store, output media.Output) *Binder {
	return &Binder{
		store:   store,
		output:  output,
		applied: playback.StatePaused,
		volume:  -1,
	}
}

// Start applies the current store state to the output, subscribes to
// further changes and starts forwarding native events.
func (b *Binder) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	b.unsubscribe = b.store.Subscribe(watchedFields, b.onChange)
	b.sync()

	go b.run(ctx)

	zlog.Debug().Msg("binder: started")
}

// Close stops forwarding events, unsubscribes from the store and closes the output.
func (b *Binder) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
		if b.cancel != nil {
			b.cancel()
			<-b.done
		}
		err = b.output.Close()
		zlog.Debug().Msg("binder: closed")
	})
	return err
}

func (b *Binder) onChange(playback.Change) {
	b.sync()
}

// sync brings the output in line with the latest store state.
// The state is read under the binder lock so that concurrent calls from the
// event loop and store listeners never apply an older state over a newer one.
// The store is only written after the lock is released, since store commands
// may deliver changes back to onChange.
func (b *Binder) sync() {
	b.mu.Lock()
	state := b.store.Snapshot()

	if state.Volume != b.volume {
		if err := b.output.SetVolume(state.Volume); err != nil {
			zlog.Warn().Msgf("binder: failed to set volume: volume=%.2f err=%v", state.Volume, err)
		}
		b.volume = state.Volume
	}

	// A reactivated entry resolves to the same URL, so the generation
	// decides whether the output needs a fresh load.
	if state.Src != b.src || (state.Src != "" && state.Generation != b.generation) {
		b.loadLocked(state.Src, state.Generation)
	}

	b.applyTransportLocked(state.RequestedState)
	seeked := b.applySeekLocked(state.RequestedSeek)

	b.mu.Unlock()

	if seeked {
		b.store.EndSeek(*state.RequestedSeek)
	}
}

func (b *Binder) loadLocked(src string, generation uint64) {
	seq := b.loads.Add(1)
	zlog.Debug().Msgf("binder: loading source: src=%q generation=%d load=%d", src, generation, seq)

	b.src = src
	b.generation = generation
	b.ready = false
	b.applied = playback.StatePaused

	if err := b.output.Load(src); err != nil {
		zlog.Warn().Msgf("binder: failed to load source: src=%q err=%v", src, err)
	}
}

// applyTransportLocked issues play or pause when the output can take it and
// the request differs from the last command issued.
func (b *Binder) applyTransportLocked(requested playback.State) {
	if !b.ready || b.src == "" || requested == b.applied {
		return
	}

	var err error
	if requested == playback.StatePlaying {
		err = b.output.Play()
	} else {
		err = b.output.Pause()
	}
	if err != nil {
		zlog.Warn().Msgf("binder: failed to apply transport state: state=%s err=%v", requested, err)
		return
	}
	b.applied = requested
}

// applySeekLocked applies a pending seek once the output is ready and
// reports whether the store should clear it.
func (b *Binder) applySeekLocked(seek *float64) bool {
	if seek == nil || !b.ready || b.src == "" {
		return false
	}
	if err := b.output.SetCurrentTime(*seek); err != nil {
		zlog.Warn().Msgf("binder: failed to seek: position=%.1f err=%v", *seek, err)
	}
	return true
}

func (b *Binder) run(ctx context.Context) {
	defer close(b.done)

	events := b.output.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			b.handle(ev)
		}
	}
}

func (b *Binder) handle(ev media.Event) {
	if current := b.loads.Load(); ev.Load != current {
		zlog.Debug().Msgf("binder: dropping stale native event: type=%s load=%d current=%d", ev.Type, ev.Load, current)
		return
	}
	if ev.Type != media.EventTimeUpdate {
		zlog.Debug().Msgf("binder: native event: type=%s", ev.Type)
	}

	switch ev.Type {
	case media.EventTimeUpdate:
		b.store.OnTimeUpdate(ev.Time)
	case media.EventDurationChange:
		b.store.OnDurationChange(ev.Duration)
	case media.EventLoadStart:
		b.store.OnLoadStart()
	case media.EventCanPlay:
		b.onCanPlay()
	case media.EventPlaying:
		b.store.OnPlaying()
	case media.EventPause:
		b.store.OnPaused()
	case media.EventWaiting:
		b.store.OnWaiting()
	case media.EventEnded:
		b.store.OnEnded()
	case media.EventEmptied:
		b.store.OnEmptied()
	case media.EventError:
		b.onError(ev.Err)
	}
}

// onCanPlay releases transport commands and seeks held back while loading.
func (b *Binder) onCanPlay() {
	b.mu.Lock()
	if b.src == "" {
		b.mu.Unlock()
		return
	}
	b.ready = true
	b.mu.Unlock()

	b.store.OnCanPlay()
	b.sync()
}

func (b *Binder) onError(err error) {
	b.mu.Lock()
	b.ready = false
	b.mu.Unlock()

	message := "playback failed"
	if err != nil {
		message = err.Error()
	}
	b.store.OnError(message)
}
