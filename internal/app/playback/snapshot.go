package playback

import (
	"slices"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// Snapshot is an immutable view of the store taken at one commit.
type Snapshot struct {
	Queue          []track.QueueEntry
	CurrentIndex   int
	Src            string
	Volume         float64
	RequestedState State
	ReportedState  State
	RequestedSeek  *float64 // nil when no seek is pending
	CurrentTime    float64  // seconds
	Duration       float64  // seconds
	Loading        bool
	ErrorKind      ErrorKind
	ErrorMessage   string
	Generation     uint64 // Bumped on every activation and stop; a new value means Src belongs to a new load

	started bool
}

// HasCurrent reports whether a track is current.
func (s Snapshot) HasCurrent() bool {
	return len(s.Queue) > 0
}

// Current returns the current entry.
func (s Snapshot) Current() (track.QueueEntry, bool) {
	if !s.HasCurrent() {
		return track.QueueEntry{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

// Upcoming returns the entries after the current one.
func (s Snapshot) Upcoming() []track.QueueEntry {
	if !s.HasCurrent() {
		return nil
	}
	return s.Queue[s.CurrentIndex+1:]
}

// IsError reports whether the store holds an error.
func (s Snapshot) IsError() bool {
	return s.ErrorKind != ErrorNone
}

// Phase derives the state machine position.
func (s Snapshot) Phase() Phase {
	switch {
	case !s.HasCurrent():
		return PhaseIdle
	case s.IsError():
		return PhaseError
	case s.Loading:
		return PhaseLoading
	case s.ReportedState == StatePlaying:
		return PhasePlaying
	case s.started:
		return PhasePaused
	default:
		return PhaseReady
	}
}

func (s Snapshot) currentQueueID() string {
	if e, ok := s.Current(); ok {
		return e.QueueID
	}
	return ""
}

func sameEntries(a, b []track.QueueEntry) bool {
	return slices.EqualFunc(a, b, func(x, y track.QueueEntry) bool {
		return x.QueueID == y.QueueID
	})
}

func seekEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// diff returns the fields that differ between two snapshots.
func diff(before, after Snapshot) Field {
	var f Field
	if !sameEntries(before.Queue, after.Queue) {
		f |= FieldQueue
	}
	if before.CurrentIndex != after.CurrentIndex {
		f |= FieldCurrentIndex
	}
	if before.currentQueueID() != after.currentQueueID() {
		f |= FieldCurrentEntry
	}
	if before.Src != after.Src {
		f |= FieldSrc
	}
	if before.Volume != after.Volume {
		f |= FieldVolume
	}
	if before.RequestedState != after.RequestedState {
		f |= FieldRequestedState
	}
	if before.ReportedState != after.ReportedState {
		f |= FieldReportedState
	}
	if !seekEqual(before.RequestedSeek, after.RequestedSeek) {
		f |= FieldRequestedSeek
	}
	if before.CurrentTime != after.CurrentTime {
		f |= FieldCurrentTime
	}
	if before.Duration != after.Duration {
		f |= FieldDuration
	}
	if before.Loading != after.Loading {
		f |= FieldLoading
	}
	if before.ErrorKind != after.ErrorKind || before.ErrorMessage != after.ErrorMessage {
		f |= FieldError
	}
	return f
}
