package connect

import (
	"time"

	"github.com/samber/lo"

	"github.com/osa030/tapedeck/internal/app/playback"
	"github.com/osa030/tapedeck/internal/domain/track"
)

// Album is the wire form of track.AlbumRef.
type Album struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// Track is the wire form of track.Track.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int64  `json:"durationMs,omitempty"`
	ArtURL     string `json:"artUrl,omitempty"`
	Album      *Album `json:"album,omitempty"`
}

// QueueEntry is the wire form of track.QueueEntry.
type QueueEntry struct {
	QueueID string    `json:"queueId"`
	Track   Track     `json:"track"`
	AddedAt time.Time `json:"addedAt"`
}

// StatusError describes the error held by the store.
type StatusError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Status is the full player state.
type Status struct {
	SequenceNo     uint64       `json:"sequenceNo"`
	Phase          string       `json:"phase"`
	Queue          []QueueEntry `json:"queue"`
	CurrentIndex   int          `json:"currentIndex"`
	Src            string       `json:"src,omitempty"`
	Volume         float64      `json:"volume"`
	RequestedState string       `json:"requestedState"`
	ReportedState  string       `json:"reportedState"`
	RequestedSeek  *float64     `json:"requestedSeek,omitempty"`
	CurrentTime    float64      `json:"currentTime"`
	Duration       float64      `json:"duration"`
	Loading        bool         `json:"loading"`
	Error          *StatusError `json:"error,omitempty"`
}

// Current returns the current entry, if any.
func (s *Status) Current() (QueueEntry, bool) {
	if s == nil || len(s.Queue) == 0 || s.CurrentIndex >= len(s.Queue) {
		return QueueEntry{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

// QueueSetRequest replaces the queue.
type QueueSetRequest struct {
	Tracks  []Track `json:"tracks"`
	StartAt int     `json:"startAt,omitempty"`
	Wait    bool    `json:"wait,omitempty"` // Respond once the URL resolution settled
}

// QueuePushRequest appends a track.
type QueuePushRequest struct {
	Track Track `json:"track"`
	Wait  bool  `json:"wait,omitempty"`
}

// IndexRequest addresses a queue entry (QueueRemove, QueueJump).
type IndexRequest struct {
	Index int  `json:"index"`
	Wait  bool `json:"wait,omitempty"`
}

// WaitRequest carries only the wait flag (QueueSkip, QueuePrev).
type WaitRequest struct {
	Wait bool `json:"wait,omitempty"`
}

// SeekRequest requests a seek.
type SeekRequest struct {
	Seconds float64 `json:"seconds"`
}

// VolumeRequest sets the volume.
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

// FromTrack converts a domain track.
func FromTrack(t track.Track) Track {
	out := Track{
		ID:         t.ID,
		Name:       t.Name,
		DurationMs: t.Duration.Milliseconds(),
		ArtURL:     t.ArtURL,
	}
	if t.Album != nil {
		out.Album = &Album{ID: t.Album.ID, Name: t.Album.Name, Artist: t.Album.Artist}
	}
	return out
}

// ToTrack converts to a domain track.
func (t Track) ToTrack() track.Track {
	out := track.Track{
		ID:       t.ID,
		Name:     t.Name,
		Duration: time.Duration(t.DurationMs) * time.Millisecond,
		ArtURL:   t.ArtURL,
	}
	if t.Album != nil {
		out.Album = &track.AlbumRef{ID: t.Album.ID, Name: t.Album.Name, Artist: t.Album.Artist}
	}
	return out
}

// StatusFromSnapshot converts a store snapshot.
func StatusFromSnapshot(s playback.Snapshot, sequenceNo uint64) *Status {
	status := &Status{
		SequenceNo: sequenceNo,
		Phase:      s.Phase().String(),
		Queue: lo.Map(s.Queue, func(e track.QueueEntry, _ int) QueueEntry {
			return QueueEntry{QueueID: e.QueueID, Track: FromTrack(e.Track), AddedAt: e.AddedAt}
		}),
		CurrentIndex:   s.CurrentIndex,
		Src:            s.Src,
		Volume:         s.Volume,
		RequestedState: s.RequestedState.String(),
		ReportedState:  s.ReportedState.String(),
		RequestedSeek:  s.RequestedSeek,
		CurrentTime:    s.CurrentTime,
		Duration:       s.Duration,
		Loading:        s.Loading,
	}
	if s.IsError() {
		status.Error = &StatusError{Kind: s.ErrorKind.String(), Message: s.ErrorMessage}
	}
	return status
}
