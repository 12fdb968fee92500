// Package track provides the Track domain entity and its queue wrapper.
package track

import (
	"time"

	"github.com/google/uuid"
)

// AlbumRef is a reference to the album a track belongs to.
type AlbumRef struct {
	ID     string // Album ID in the catalog
	Name   string // Album title
	Artist string // Album artist name (may be empty)
}

// Track represents a catalog track.
// Tracks are read-only values owned by the catalog; the queue only holds copies.
type Track struct {
	ID       string        // Stable content-derived identifier
	Name     string        // Track title
	Duration time.Duration // Catalog duration (authoritative only once playback reports it)
	ArtURL   string        // Artwork URL (optional)
	Album    *AlbumRef     // Parent album (optional)
}

// Artist returns the album artist, or an empty string when unknown.
func (t Track) Artist() string {
	if t.Album == nil {
		return ""
	}
	return t.Album.Artist
}

// AlbumName returns the album title, or an empty string when unknown.
func (t Track) AlbumName() string {
	if t.Album == nil {
		return ""
	}
	return t.Album.Name
}

// QueueEntry represents one occurrence of a track in the play queue.
// QueueID is unique per insertion, so the same track may appear more than once.
type QueueEntry struct {
	QueueID string    // Unique per insertion
	Track   Track     // Track info
	AddedAt time.Time // Time when added to queue
}

// NewEntry wraps a track in a fresh queue entry.
func NewEntry(t Track) QueueEntry {
	return QueueEntry{
		QueueID: uuid.NewString(),
		Track:   t,
		AddedAt: time.Now(),
	}
}

// NewEntries wraps each track in a fresh queue entry, preserving order.
func NewEntries(tracks []Track) []QueueEntry {
	entries := make([]QueueEntry, len(tracks))
	for i, t := range tracks {
		entries[i] = NewEntry(t)
	}
	return entries
}

// Tracks returns the tracks of the given entries, preserving order.
func Tracks(entries []QueueEntry) []Track {
	tracks := make([]Track, len(entries))
	for i, e := range entries {
		tracks[i] = e.Track
	}
	return tracks
}

// WithArtFallback returns a copy of tracks where tracks without artwork use artURL.
func WithArtFallback(tracks []Track, artURL string) []Track {
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		if t.ArtURL == "" {
			t.ArtURL = artURL
		}
		out[i] = t
	}
	return out
}
