// Package mediatest provides a scriptable media.Output for tests.
package mediatest

import (
	"fmt"
	"sync"

	"github.com/osa030/tapedeck/internal/infra/media"
)

// Call records one method invocation on Output.
type Call struct {
	Method string
	Arg    any
}

// String returns e.g. "Load(/media/a)" or "Play".
func (c Call) String() string {
	if c.Arg == nil {
		return c.Method
	}
	return fmt.Sprintf("%s(%v)", c.Method, c.Arg)
}

// Output records every call and only emits the events a test sends with Emit.
type Output struct {
	mu          sync.Mutex
	calls       []Call
	src         string
	currentTime float64
	duration    float64
	volume      float64
	closed      bool
	loads       uint64
	events      chan media.Event
}

// NewOutput creates a fake output.
func NewOutput() *Output {
	return &Output{
		volume: 1,
		events: make(chan media.Event, 64),
	}
}

func (o *Output) record(method string, arg any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, Call{Method: method, Arg: arg})
}

func (o *Output) Load(src string) error {
	o.record("Load", src)
	o.mu.Lock()
	o.loads++
	o.src = src
	o.currentTime = 0
	o.mu.Unlock()
	return nil
}

func (o *Output) Play() error {
	o.record("Play", nil)
	return nil
}

func (o *Output) Pause() error {
	o.record("Pause", nil)
	return nil
}

func (o *Output) SetCurrentTime(seconds float64) error {
	o.record("SetCurrentTime", seconds)
	o.mu.Lock()
	o.currentTime = seconds
	o.mu.Unlock()
	return nil
}

func (o *Output) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentTime
}

func (o *Output) SetVolume(fraction float64) error {
	o.record("SetVolume", fraction)
	o.mu.Lock()
	o.volume = fraction
	o.mu.Unlock()
	return nil
}

func (o *Output) Duration() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.duration
}

func (o *Output) Events() <-chan media.Event {
	return o.events
}

func (o *Output) Close() error {
	o.record("Close", nil)
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

// Emit delivers ev as if the native handle produced it. Events without a
// load sequence are stamped with the current one.
func (o *Output) Emit(ev media.Event) {
	o.mu.Lock()
	if ev.Type == media.EventDurationChange {
		o.duration = ev.Duration
	}
	if ev.Load == 0 {
		ev.Load = o.loads
	}
	o.mu.Unlock()
	o.events <- ev
}

// LoadSeq returns the sequence of the latest Load call.
func (o *Output) LoadSeq() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loads
}

// Calls returns the recorded calls.
func (o *Output) Calls() []Call {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Call(nil), o.calls...)
}

// CallStrings returns the recorded calls formatted with Call.String.
func (o *Output) CallStrings() []string {
	calls := o.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Count returns how often method was called.
func (o *Output) Count(method string) int {
	n := 0
	for _, c := range o.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (o *Output) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = nil
}

// Src returns the last loaded source.
func (o *Output) Src() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.src
}

// Volume returns the last volume set.
func (o *Output) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// Closed reports whether Close was called.
func (o *Output) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

var _ media.Output = (*Output)(nil)
