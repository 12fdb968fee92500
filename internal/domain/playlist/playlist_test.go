package playlist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tapedeck/internal/domain/track"
)

func TestPlaylist_TrackIDs(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []track.Track
		expected []string
	}{
		{
			name:     "empty playlist",
			tracks:   []track.Track{},
			expected: []string{},
		},
		{
			name:     "multiple tracks",
			tracks:   []track.Track{{ID: "track-1"}, {ID: "track-2"}, {ID: "track-3"}},
			expected: []string{"track-1", "track-2", "track-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{ID: "playlist-1", Tracks: tt.tracks}
			assert.Equal(t, tt.expected, p.TrackIDs())
		})
	}
}

func TestPlaylist_TotalDuration(t *testing.T) {
	p := &Playlist{Tracks: []track.Track{
		{ID: "1", Duration: 90 * time.Second},
		{ID: "2", Duration: 30 * time.Second},
		{ID: "3"},
	}}
	assert.Equal(t, 2*time.Minute, p.TotalDuration())
}

func TestParse(t *testing.T) {
	doc := `
id: road-trip
name: Road Trip
tracks:
  - id: abc
    name: Intro
  - id: def
    name: Coda
    duration_sec: 241.5
    art_url: /api/images/al1
    album:
      id: al1
      name: Late Songs
      artist: The Band
`
	p, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "road-trip", p.ID)
	assert.Equal(t, "Road Trip", p.Name)
	require.Len(t, p.Tracks, 2)
	assert.Equal(t, track.Track{ID: "abc", Name: "Intro"}, p.Tracks[0])
	assert.Equal(t, 241500*time.Millisecond, p.Tracks[1].Duration)
	assert.Equal(t, "The Band", p.Tracks[1].Artist())
	assert.Equal(t, "/api/images/al1", p.Tracks[1].ArtURL)
}

func TestParse_MissingTrackID(t *testing.T) {
	_, err := Parse([]byte("id: x\nname: x\ntracks:\n  - name: nameless\n"))
	assert.Error(t, err)
}

func TestLoadFile_RoundTrip(t *testing.T) {
	p := &Playlist{
		ID:   "p1",
		Name: "Saved",
		Tracks: []track.Track{
			{ID: "t1", Name: "One", Duration: 3 * time.Second, Album: &track.AlbumRef{ID: "a", Name: "Alb"}},
		},
	}
	data, err := p.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
