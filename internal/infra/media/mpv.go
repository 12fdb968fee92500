//go:build libmpv

package media

import (
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	mpv "github.com/gen2brain/go-mpv"
	zlog "github.com/rs/zerolog/log"
)

const mpvAvailable = true

const (
	mpvPauseProperty    = "pause"
	mpvPositionProperty = "time-pos"
	mpvDurationProperty = "duration"
	mpvVolumeProperty   = "volume"
)

// MPVOutput plays sources through libmpv.
type MPVOutput struct {
	*emitter

	mu          sync.Mutex
	client      *mpv.Mpv
	config      Config
	loaded      bool
	playing     bool
	closeOnce   sync.Once
	stop        chan struct{}
	eventLoopWG sync.WaitGroup
}

// NewMPVOutput creates and initialises a libmpv instance.
func NewMPVOutput(cfg Config) (*MPVOutput, error) {
	client := mpv.New()
	if client == nil {
		return nil, errors.New("failed to create libmpv instance")
	}

	for name, value := range map[string]string{
		"terminal":      "no",
		"video":         "no",
		"audio-display": "no",
		"keep-open":     "no",
		"idle":          "yes",
	} {
		_ = client.SetOptionString(name, value)
	}

	if err := client.Initialize(); err != nil {
		client.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to initialize libmpv")
	}

	_ = client.RequestEvent(mpv.EventStart, true)
	_ = client.RequestEvent(mpv.EventFileLoaded, true)
	_ = client.RequestEvent(mpv.EventEnd, true)

	o := &MPVOutput{
		emitter: newEmitter(),
		client:  client,
		config:  cfg,
		stop:    make(chan struct{}),
	}

	o.eventLoopWG.Add(2)
	go o.eventLoop()
	go o.tickLoop()

	return o, nil
}

// Load replaces the current file. An empty src stops playback.
func (o *MPVOutput) Load(src string) error {
	o.beginLoad()

	if src == "" {
		if err := o.unload(); err != nil {
			return err
		}
		o.emit(Event{Type: EventEmptied})
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.playing = false

	if err := o.client.SetPropertyString(mpvPauseProperty, "yes"); err != nil {
		return errors.Wrap(err, "failed to pause before load")
	}
	if err := o.client.Command([]string{"loadfile", src, "replace"}); err != nil {
		return errors.Wrapf(err, "failed to load %q", src)
	}
	o.loaded = true
	return nil
}

func (o *MPVOutput) unload() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.playing = false
	o.loaded = false
	if err := o.client.Command([]string{"stop"}); err != nil {
		return errors.Wrap(err, "failed to stop playback")
	}
	return nil
}

// Play resumes playback.
func (o *MPVOutput) Play() error {
	if err := o.setPause(false); err != nil {
		return errors.Wrap(err, "failed to resume playback")
	}
	o.emit(Event{Type: EventPlaying})
	return nil
}

// Pause pauses playback.
func (o *MPVOutput) Pause() error {
	if err := o.setPause(true); err != nil {
		return errors.Wrap(err, "failed to pause playback")
	}
	o.emit(Event{Type: EventPause})
	return nil
}

func (o *MPVOutput) setPause(paused bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.loaded {
		return ErrNotLoaded
	}
	value := "no"
	if paused {
		value = "yes"
	}
	if err := o.client.SetPropertyString(mpvPauseProperty, value); err != nil {
		return err
	}
	o.playing = !paused
	return nil
}

// SetCurrentTime seeks to seconds.
func (o *MPVOutput) SetCurrentTime(seconds float64) error {
	o.mu.Lock()
	err := o.client.SetProperty(mpvPositionProperty, mpv.FormatDouble, seconds)
	o.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	o.emit(Event{Type: EventTimeUpdate, Time: seconds})
	return nil
}

// CurrentTime returns the playback position in seconds.
func (o *MPVOutput) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.readSecondsLocked(mpvPositionProperty)
}

// Duration returns the duration in seconds, or 0 while unknown.
func (o *MPVOutput) Duration() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.readSecondsLocked(mpvDurationProperty)
}

// SetVolume maps a linear [0, 1] volume onto mpv's 0-100 scale.
func (o *MPVOutput) SetVolume(fraction float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	volume := max(0, min(fraction, 1)) * 100
	if err := o.client.SetProperty(mpvVolumeProperty, mpv.FormatDouble, volume); err != nil {
		return errors.Wrap(err, "failed to set volume")
	}
	return nil
}

// Close terminates libmpv and waits for the event loops.
func (o *MPVOutput) Close() error {
	o.closeOnce.Do(func() {
		close(o.stop)
		o.emitter.close()

		o.mu.Lock()
		o.client.Wakeup()
		o.client.TerminateDestroy()
		o.mu.Unlock()

		o.eventLoopWG.Wait()
	})
	return nil
}

func (o *MPVOutput) eventLoop() {
	defer o.eventLoopWG.Done()

	for {
		event := o.client.WaitEvent(0.5)
		if event == nil {
			continue
		}

		switch event.EventID {
		case mpv.EventShutdown:
			return
		case mpv.EventStart:
			o.emit(Event{Type: EventLoadStart})
		case mpv.EventFileLoaded:
			if d := o.Duration(); d > 0 {
				o.emit(Event{Type: EventDurationChange, Duration: d})
			}
			o.emit(Event{Type: EventCanPlay})
		case mpv.EventEnd:
			end := event.EndFile()
			switch end.Reason {
			case mpv.EndFileEOF:
				o.mu.Lock()
				o.playing = false
				o.mu.Unlock()
				o.emit(Event{Type: EventEnded})
			case mpv.EndFileError:
				zlog.Warn().Msgf("media: mpv playback error: %v", end.Error)
				o.emit(Event{Type: EventError, Err: errors.Wrap(end.Error, "mpv playback error")})
			}
		}
	}
}

func (o *MPVOutput) tickLoop() {
	defer o.eventLoopWG.Done()

	t := time.NewTicker(o.config.TimeUpdateInterval)
	defer t.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-t.C:
			o.mu.Lock()
			playing := o.playing
			o.mu.Unlock()
			if playing {
				o.emit(Event{Type: EventTimeUpdate, Time: o.CurrentTime()})
			}
		}
	}
}

func (o *MPVOutput) readSecondsLocked(property string) float64 {
	value, err := o.client.GetProperty(property, mpv.FormatDouble)
	if err != nil {
		if !errors.Is(err, mpv.ErrPropertyUnavailable) && !errors.Is(err, mpv.ErrPropertyNotFound) {
			zlog.Debug().Msgf("media: failed to read mpv property: property=%s err=%v", property, err)
		}
		return 0
	}
	seconds, ok := value.(float64)
	if !ok || math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return seconds
}
