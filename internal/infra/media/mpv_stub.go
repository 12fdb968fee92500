//go:build !libmpv

package media

const mpvAvailable = false

// MPVOutput is unavailable unless built with -tags libmpv.
type MPVOutput struct {
	*emitter
}

// NewMPVOutput always fails in builds without libmpv.
func NewMPVOutput(Config) (*MPVOutput, error) {
	return nil, ErrBackendUnavailable
}

func (o *MPVOutput) Load(string) error            { return ErrBackendUnavailable }
func (o *MPVOutput) Play() error                  { return ErrBackendUnavailable }
func (o *MPVOutput) Pause() error                 { return ErrBackendUnavailable }
func (o *MPVOutput) SetCurrentTime(float64) error { return ErrBackendUnavailable }
func (o *MPVOutput) CurrentTime() float64         { return 0 }
func (o *MPVOutput) SetVolume(float64) error      { return ErrBackendUnavailable }
func (o *MPVOutput) Duration() float64            { return 0 }
func (o *MPVOutput) Close() error                 { return nil }
