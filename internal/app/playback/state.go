// Package playback provides the playback queue store: queue contents, transport
// intent, native playback reports and the listeners that observe them.
package playback

// State represents a transport state, either requested or reported.
type State int

const (
	StatePaused  State = iota // Not playing (default)
	StatePlaying              // Playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Phase is the derived position in the transport state machine.
type Phase int

const (
	PhaseIdle    Phase = iota // No current track
	PhaseLoading              // Resolving or loading the current track
	PhaseReady                // Loaded, not yet started
	PhasePlaying              // Native handle confirmed playback
	PhasePaused               // Paused after having played
	PhaseError                // Resolution or playback failed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorKind classifies the error currently held by the store.
type ErrorKind int

const (
	ErrorNone       ErrorKind = iota // No error
	ErrorResolution                  // Track Resolver could not produce a URL
	ErrorPlayback                    // Native handle reported an error
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorResolution:
		return "resolution"
	case ErrorPlayback:
		return "playback"
	default:
		return "unknown"
	}
}
