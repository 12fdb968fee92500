// Package playlist provides the Playlist domain entity and its YAML file format.
package playlist

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// Playlist represents a named, ordered list of tracks.
type Playlist struct {
	ID     string        // Playlist ID
	Name   string        // Playlist name
	Tracks []track.Track // Tracks in the playlist
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the total catalog duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

type fileAlbum struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Artist string `yaml:"artist,omitempty"`
}

type fileTrack struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	DurationSec float64    `yaml:"duration_sec,omitempty"`
	ArtURL      string     `yaml:"art_url,omitempty"`
	Album       *fileAlbum `yaml:"album,omitempty"`
}

type file struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Tracks []fileTrack `yaml:"tracks"`
}

// Parse decodes a playlist document.
func Parse(data []byte) (*Playlist, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse playlist")
	}

	p := &Playlist{
		ID:     f.ID,
		Name:   f.Name,
		Tracks: make([]track.Track, 0, len(f.Tracks)),
	}
	for i, ft := range f.Tracks {
		if ft.ID == "" {
			return nil, errors.Newf("playlist track %d has no id", i)
		}
		t := track.Track{
			ID:       ft.ID,
			Name:     ft.Name,
			Duration: time.Duration(ft.DurationSec * float64(time.Second)),
			ArtURL:   ft.ArtURL,
		}
		if ft.Album != nil {
			t.Album = &track.AlbumRef{ID: ft.Album.ID, Name: ft.Album.Name, Artist: ft.Album.Artist}
		}
		p.Tracks = append(p.Tracks, t)
	}
	return p, nil
}

// LoadFile reads and decodes a playlist file.
func LoadFile(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist file")
	}
	return Parse(data)
}

// Marshal encodes the playlist in its file format.
func (p *Playlist) Marshal() ([]byte, error) {
	f := file{ID: p.ID, Name: p.Name, Tracks: make([]fileTrack, len(p.Tracks))}
	for i, t := range p.Tracks {
		ft := fileTrack{
			ID:          t.ID,
			Name:        t.Name,
			DurationSec: t.Duration.Seconds(),
			ArtURL:      t.ArtURL,
		}
		if t.Album != nil {
			ft.Album = &fileAlbum{ID: t.Album.ID, Name: t.Album.Name, Artist: t.Album.Artist}
		}
		f.Tracks[i] = ft
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode playlist")
	}
	return data, nil
}
