//go:build !((linux && cgo) || windows || darwin)

package media

// beep needs native sound libraries, which require cgo on linux.
const beepAvailable = false

// BeepOutput is unavailable in builds without cgo.
type BeepOutput struct {
	*emitter
}

// NewBeepOutput always fails in builds without cgo.
func NewBeepOutput(Config) (*BeepOutput, error) {
	return nil, ErrBackendUnavailable
}

func (o *BeepOutput) Load(string) error            { return ErrBackendUnavailable }
func (o *BeepOutput) Play() error                  { return ErrBackendUnavailable }
func (o *BeepOutput) Pause() error                 { return ErrBackendUnavailable }
func (o *BeepOutput) SetCurrentTime(float64) error { return ErrBackendUnavailable }
func (o *BeepOutput) CurrentTime() float64         { return 0 }
func (o *BeepOutput) SetVolume(float64) error      { return ErrBackendUnavailable }
func (o *BeepOutput) Duration() float64            { return 0 }
func (o *BeepOutput) Close() error                 { return nil }
