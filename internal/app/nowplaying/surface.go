// Package nowplaying mirrors the playback store onto OS-level now-playing
// surfaces and routes their transport actions back into the store.
package nowplaying

import (
	"slices"
	"time"
)

// Surface is an OS-level now-playing surface (media keys, lock screen,
// notifications, scrobblers). Implementations must not block.
type Surface interface {
	Name() string
	// SetMetadata replaces the displayed metadata. nil clears it.
	SetMetadata(m *Metadata)
	SetPlaybackState(state SessionState)
	// SetActionHandler registers handler for action. A nil handler clears it.
	SetActionHandler(action Action, handler ActionHandler)
}

// SessionState is the playback state shown by a surface.
type SessionState string

const (
	SessionNone    SessionState = "none"
	SessionPaused  SessionState = "paused"
	SessionPlaying SessionState = "playing"
)

// Action is a transport action a surface can originate.
type Action string

const (
	ActionPlay          Action = "play"
	ActionPause         Action = "pause"
	ActionStop          Action = "stop"
	ActionPreviousTrack Action = "previoustrack"
	ActionNextTrack     Action = "nexttrack"
	ActionSeekBackward  Action = "seekbackward"
	ActionSeekForward   Action = "seekforward"
	ActionSeekTo        Action = "seekto"
)

// Actions lists every action in registration order.
var Actions = []Action{
	ActionPlay,
	ActionPause,
	ActionStop,
	ActionPreviousTrack,
	ActionNextTrack,
	ActionSeekBackward,
	ActionSeekForward,
	ActionSeekTo,
}

// ActionDetails carries the arguments of an action.
type ActionDetails struct {
	Action     Action
	SeekTime   float64 // Absolute position in seconds (seekto)
	SeekOffset float64 // Relative step in seconds, 0 = default (seekbackward, seekforward)
}

// ActionHandler handles one action.
type ActionHandler func(ActionDetails)

// ArtworkSize is the size advertised for artwork images.
const ArtworkSize = "512x512"

// Artwork is one artwork image.
type Artwork struct {
	Src   string
	Sizes string
}

// Metadata is what a surface displays for the current track.
type Metadata struct {
	TrackID  string
	Title    string
	Artist   string
	Album    string
	Artwork  []Artwork
	Duration time.Duration
}

// ArtURL returns the first artwork source, or "".
func (m *Metadata) ArtURL() string {
	if m == nil || len(m.Artwork) == 0 {
		return ""
	}
	return m.Artwork[0].Src
}

// Equal reports whether m and o describe the same metadata. nil equals nil only.
func (m *Metadata) Equal(o *Metadata) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.TrackID == o.TrackID &&
		m.Title == o.Title &&
		m.Artist == o.Artist &&
		m.Album == o.Album &&
		m.Duration == o.Duration &&
		slices.Equal(m.Artwork, o.Artwork)
}
