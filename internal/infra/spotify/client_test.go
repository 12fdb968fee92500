package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"

	"github.com/osa030/tapedeck/internal/domain/track"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:album:37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/album/37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/album/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Localized URL",
			input:    "https://open.spotify.com/intl-ja/album/abc123/",
			expected: "abc123",
		},
		{
			name:     "Plain album ID",
			input:    "37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "HTTP URL (not HTTPS)",
			input:    "http://open.spotify.com/album/testID",
			expected: "testID",
		},
		{
			name:     "URL with multiple query params",
			input:    "https://open.spotify.com/album/abc123?si=xyz&utm_source=copy",
			expected: "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractID(tt.input, "album")
			assert.Equal(t, tt.expected, result,
				"extractID(%s) should return %s", tt.input, tt.expected)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "rate limit error with 429",
			err:      errors.New("Error 429: rate limit exceeded"),
			expected: true,
		},
		{
			name:     "rate limit text",
			err:      errors.New("rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error 500",
			err:      errors.New("Error 500: internal server error"),
			expected: true,
		},
		{
			name:     "server error 502",
			err:      errors.New("502 Bad Gateway"),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      errors.New("503 Service Unavailable"),
			expected: true,
		},
		{
			name:     "server error 504",
			err:      errors.New("504 Gateway Timeout"),
			expected: true,
		},
		{
			name:     "client error 400",
			err:      errors.New("400 Bad Request"),
			expected: false,
		},
		{
			name:     "not found error",
			err:      errors.New("404 not found"),
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryable(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := newClient(spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/")), "US")
	c.retryDelay = time.Millisecond
	return c
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), Config{ClientID: "id"})
	assert.Error(t, err)

	c, err := New(context.Background(), Config{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "JP", c.market)
}

func TestFindArtwork(t *testing.T) {
	tests := []struct {
		name      string
		track     track.Track
		wantType  string
		wantQuery string
		response  string
		want      string
	}{
		{
			name:      "album search picks widest image",
			track:     track.Track{Name: "Song", Album: &track.AlbumRef{Name: "Record", Artist: "Band"}},
			wantType:  "album",
			wantQuery: `album:"Record" artist:"Band"`,
			response: `{"albums": {"items": [{"id": "a1", "name": "Record", "images": [
				{"url": "https://img/300", "width": 300, "height": 300},
				{"url": "https://img/640", "width": 640, "height": 640}
			]}]}}`,
			want: "https://img/640",
		},
		{
			name:      "track search without album",
			track:     track.Track{Name: "Song"},
			wantType:  "track",
			wantQuery: `track:"Song"`,
			response: `{"tracks": {"items": [{"id": "t1", "name": "Song", "album": {"name": "Record", "images": [
				{"url": "https://img/track", "width": 640, "height": 640}
			]}}]}}`,
			want: "https://img/track",
		},
		{
			name:      "no match",
			track:     track.Track{Name: "Song", Album: &track.AlbumRef{Name: "Record"}},
			wantType:  "album",
			wantQuery: `album:"Record"`,
			response:  `{"albums": {"items": []}}`,
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, tt.wantType, r.URL.Query().Get("type"))
				assert.Equal(t, tt.wantQuery, r.URL.Query().Get("q"))
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.response)
			})

			got, err := c.FindArtwork(context.Background(), tt.track)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindArtwork_NotRetryable(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"status": 400, "message": "bad query"}}`)
	})

	_, err := c.FindArtwork(context.Background(), track.Track{Name: "Song"})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFindArtwork_AlbumReference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/albums/abc123", r.URL.Path)
		assert.Equal(t, "US", r.URL.Query().Get("market"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "abc123", "name": "Record", "images": [
			{"url": "https://img/64", "width": 64, "height": 64},
			{"url": "https://img/640", "width": 640, "height": 640}
		]}`)
	})

	got, err := c.FindArtwork(context.Background(), track.Track{
		Name:  "Song",
		Album: &track.AlbumRef{ID: "spotify:album:abc123", Name: "Record"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img/640", got)
}

func TestIsSpotifyRef(t *testing.T) {
	assert.True(t, isSpotifyRef("spotify:album:abc", "album"))
	assert.True(t, isSpotifyRef("https://open.spotify.com/intl-ja/album/abc", "album"))
	assert.False(t, isSpotifyRef("abc", "album"))
	assert.False(t, isSpotifyRef("spotify:track:abc", "album"))
}
