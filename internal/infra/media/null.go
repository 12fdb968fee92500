package media

import (
	"sync"
	"time"
)

// NullOutput simulates playback against the wall clock without producing audio.
// Sources are never fetched, so loads succeed immediately and never end.
type NullOutput struct {
	*emitter

	mu        sync.Mutex
	interval  time.Duration
	src       string
	position  float64   // Position at the last pause or seek
	startedAt time.Time // Zero while paused
	volume    float64
	ticker    chan struct{}
	closed    bool
}

// NewNullOutput creates a simulated output.
func NewNullOutput(cfg Config) *NullOutput {
	interval := cfg.TimeUpdateInterval
	if interval <= 0 {
		interval = defaultTimeUpdatePeriod
	}
	return &NullOutput{
		emitter:  newEmitter(),
		interval: interval,
		volume:   1,
	}
}

func (o *NullOutput) Load(src string) error {
	o.beginLoad()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.stopLocked()
	o.src = src
	o.position = 0
	o.mu.Unlock()

	if src == "" {
		o.emit(Event{Type: EventEmptied})
		return nil
	}
	o.emit(Event{Type: EventLoadStart})
	o.emit(Event{Type: EventCanPlay})
	return nil
}

func (o *NullOutput) Play() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.src == "" {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	if o.startedAt.IsZero() {
		o.startedAt = time.Now()
		o.startTickerLocked()
	}
	o.mu.Unlock()

	o.emit(Event{Type: EventPlaying})
	return nil
}

func (o *NullOutput) Pause() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.src == "" {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	o.position = o.currentTimeLocked()
	o.stopLocked()
	o.mu.Unlock()

	o.emit(Event{Type: EventPause})
	return nil
}

func (o *NullOutput) SetCurrentTime(seconds float64) error {
	o.mu.Lock()
	if o.src == "" {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	o.position = max(seconds, 0)
	if !o.startedAt.IsZero() {
		o.startedAt = time.Now()
	}
	pos := o.position
	o.mu.Unlock()

	o.emit(Event{Type: EventTimeUpdate, Time: pos})
	return nil
}

func (o *NullOutput) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentTimeLocked()
}

func (o *NullOutput) currentTimeLocked() float64 {
	if o.startedAt.IsZero() {
		return o.position
	}
	return o.position + time.Since(o.startedAt).Seconds()
}

// Volume returns the last volume set.
func (o *NullOutput) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func (o *NullOutput) SetVolume(fraction float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = max(0, min(fraction, 1))
	return nil
}

func (o *NullOutput) Duration() float64 {
	return 0
}

func (o *NullOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.stopLocked()
	o.emitter.close()
	return nil
}

func (o *NullOutput) stopLocked() {
	o.startedAt = time.Time{}
	if o.ticker != nil {
		close(o.ticker)
		o.ticker = nil
	}
}

func (o *NullOutput) startTickerLocked() {
	stop := make(chan struct{})
	o.ticker = stop

	go func() {
		t := time.NewTicker(o.interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				o.emit(Event{Type: EventTimeUpdate, Time: o.CurrentTime()})
			}
		}
	}()
}
