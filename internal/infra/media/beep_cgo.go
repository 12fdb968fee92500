//go:build (linux && cgo) || windows || darwin

package media

import (
	"bytes"
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
)

const beepAvailable = true

// speakerRate is the rate the speaker is initialised with; sources are resampled to it.
const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// BeepOutput decodes sources in-process and plays them through the system speaker.
type BeepOutput struct {
	*emitter

	mu       sync.Mutex
	config   Config
	loadID   uint64             // Load sequence of the current source; guards stale fetches and callbacks
	cancel   context.CancelFunc // Cancels the in-flight fetch
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64 // Linear volume in [0, 1]
	playing  bool
	ticker   chan struct{} // Closed to stop the timeupdate ticker
	closed   bool
}

// NewBeepOutput creates the beep backend and initialises the speaker.
func NewBeepOutput(cfg Config) (*BeepOutput, error) {
	if err := initSpeaker(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}
	return &BeepOutput{
		emitter: newEmitter(),
		config:  cfg,
		level:   1,
	}, nil
}

// Load starts fetching and decoding src. Events report the outcome.
func (o *BeepOutput) Load(src string) error {
	id := o.beginLoad()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}

	o.unloadLocked()
	o.loadID = id

	if src == "" {
		o.mu.Unlock()
		o.emit(Event{Type: EventEmptied})
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.mu.Unlock()

	o.emit(Event{Type: EventLoadStart})
	go o.fetch(ctx, id, src)
	return nil
}

func (o *BeepOutput) fetch(ctx context.Context, id uint64, src string) {
	data, format, err := fetchSource(ctx, o.config.HTTPClient, src)
	if err == nil {
		err = o.open(id, data, format)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		zlog.Warn().Msgf("media: beep load failed: src=%s err=%v", src, err)
		o.emitFor(id, Event{Type: EventError, Err: err})
	}
}

// emitFor emits ev unless a newer load replaced load id.
func (o *BeepOutput) emitFor(id uint64, ev Event) {
	o.mu.Lock()
	stale := id != o.loadID || o.closed
	o.mu.Unlock()
	if !stale {
		ev.Load = id
		o.emit(ev)
	}
}

func (o *BeepOutput) open(id uint64, data []byte, format string) error {
	streamer, fmtInfo, err := decode(data, format)
	if err != nil {
		return err
	}

	o.mu.Lock()
	if id != o.loadID || o.closed {
		o.mu.Unlock()
		streamer.Close()
		return nil
	}

	o.streamer = streamer
	o.format = fmtInfo

	var s beep.Streamer = streamer
	if fmtInfo.SampleRate != speakerRate {
		s = beep.Resample(4, fmtInfo.SampleRate, speakerRate, streamer)
	}
	o.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	o.volume = &effects.Volume{Streamer: o.ctrl, Base: 2}
	applyLevel(o.volume, o.level)

	speaker.Play(beep.Seq(o.volume, beep.Callback(func() {
		go o.finished(id)
	})))

	duration := fmtInfo.SampleRate.D(streamer.Len()).Seconds()
	o.mu.Unlock()

	zlog.Debug().Msgf("media: beep source ready: rate=%d duration=%.1f", fmtInfo.SampleRate, duration)

	o.emitFor(id, Event{Type: EventDurationChange, Duration: duration})
	o.emitFor(id, Event{Type: EventCanPlay})
	return nil
}

func decode(data []byte, format string) (beep.StreamSeekCloser, beep.Format, error) {
	switch format {
	case formatMP3:
		s, f, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
		return s, f, errors.Wrap(err, "failed to decode mp3")
	case formatWAV:
		s, f, err := wav.Decode(bytes.NewReader(data))
		return s, f, errors.Wrap(err, "failed to decode wav")
	default:
		return nil, beep.Format{}, errors.Wrapf(ErrUnsupportedFormat, "format %q", format)
	}
}

func (o *BeepOutput) finished(id uint64) {
	o.mu.Lock()
	if id != o.loadID || o.closed {
		o.mu.Unlock()
		return
	}
	o.playing = false
	o.stopTickerLocked()
	o.mu.Unlock()

	o.emitFor(id, Event{Type: EventEnded})
}

// Play resumes the loaded source.
func (o *BeepOutput) Play() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.ctrl == nil {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	speaker.Lock()
	o.ctrl.Paused = false
	speaker.Unlock()
	o.playing = true
	o.startTickerLocked()
	o.mu.Unlock()

	o.emit(Event{Type: EventPlaying})
	return nil
}

// Pause pauses the loaded source.
func (o *BeepOutput) Pause() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.ctrl == nil {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	speaker.Lock()
	o.ctrl.Paused = true
	speaker.Unlock()
	o.playing = false
	o.stopTickerLocked()
	o.mu.Unlock()

	o.emit(Event{Type: EventPause})
	return nil
}

// SetCurrentTime seeks within the loaded source.
func (o *BeepOutput) SetCurrentTime(seconds float64) error {
	o.mu.Lock()
	if o.streamer == nil {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	n := o.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	n = max(0, min(n, o.streamer.Len()-1))

	speaker.Lock()
	err := o.streamer.Seek(n)
	speaker.Unlock()
	o.mu.Unlock()

	if err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	o.emit(Event{Type: EventTimeUpdate, Time: o.CurrentTime()})
	return nil
}

// CurrentTime returns the playback position in seconds.
func (o *BeepOutput) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentTimeLocked()
}

func (o *BeepOutput) currentTimeLocked() float64 {
	if o.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := o.streamer.Position()
	speaker.Unlock()
	return o.format.SampleRate.D(pos).Seconds()
}

// Duration returns the source duration in seconds.
func (o *BeepOutput) Duration() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.streamer == nil {
		return 0
	}
	return o.format.SampleRate.D(o.streamer.Len()).Seconds()
}

// SetVolume sets the linear volume in [0, 1].
func (o *BeepOutput) SetVolume(fraction float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.level = max(0, min(fraction, 1))
	if o.volume != nil {
		speaker.Lock()
		applyLevel(o.volume, o.level)
		speaker.Unlock()
	}
	return nil
}

// applyLevel maps a linear level onto the base-2 gain of v.
func applyLevel(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(level)
}

// Close stops playback and releases the current source.
func (o *BeepOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.unloadLocked()
	o.emitter.close()
	return nil
}

func (o *BeepOutput) unloadLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.stopTickerLocked()
	o.playing = false
	if o.streamer != nil {
		speaker.Clear()
		o.streamer.Close()
		o.streamer = nil
	}
	o.ctrl = nil
	o.volume = nil
}

func (o *BeepOutput) startTickerLocked() {
	if o.ticker != nil {
		return
	}
	stop := make(chan struct{})
	o.ticker = stop

	go func() {
		t := time.NewTicker(o.config.TimeUpdateInterval)
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

func (o *BeepOutput) stopTickerLocked() {
	if o.ticker != nil {
		close(o.ticker)
		o.ticker = nil
	}
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser while keeping Seek.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
