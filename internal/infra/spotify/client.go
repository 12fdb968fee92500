// Package spotify provides a client for the Spotify Web API used to look up
// artwork for tracks that have none.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/osa030/tapedeck/internal/domain/track"
)

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Market       string
}

// New creates a new Spotify client authenticated with the client-credentials flow.
// No user scopes are needed for catalog search.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	// HTTP client with automatic token refresh
	httpClient := creds.Client(ctx)

	return newClient(spotify.New(httpClient), cfg.Market), nil
}

func newClient(client *spotify.Client, market string) *Client {
	if market == "" {
		market = "JP"
	}
	return &Client{
		client:     client,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// FindArtwork returns the largest album image for t, or "" when Spotify has no match.
// An album ID that is a Spotify URI or URL is fetched directly; otherwise albums are
// searched by name and artist, and tracks without an album by title.
func (c *Client) FindArtwork(ctx context.Context, t track.Track) (string, error) {
	if t.Album != nil && isSpotifyRef(t.Album.ID, "album") {
		return c.GetAlbumArt(ctx, t.Album.ID)
	}
	if t.AlbumName() != "" {
		return c.FindAlbumArt(ctx, t.AlbumName(), t.Artist())
	}
	return c.FindTrackArt(ctx, t.Name, t.Artist())
}

// FindAlbumArt searches for an album and returns its largest image URL.
func (c *Client) FindAlbumArt(ctx context.Context, album, artist string) (string, error) {
	result, err := c.search(ctx, buildQuery("album", album, artist), spotify.SearchTypeAlbum)
	if err != nil {
		return "", err
	}
	if result.Albums == nil {
		return "", nil
	}
	for _, a := range result.Albums.Albums {
		if url := largestImage(a.Images); url != "" {
			return url, nil
		}
	}
	return "", nil
}

// FindTrackArt searches for a track and returns the largest image of its album.
func (c *Client) FindTrackArt(ctx context.Context, name, artist string) (string, error) {
	result, err := c.search(ctx, buildQuery("track", name, artist), spotify.SearchTypeTrack)
	if err != nil {
		return "", err
	}
	if result.Tracks == nil {
		return "", nil
	}
	for _, t := range result.Tracks.Tracks {
		if url := largestImage(t.Album.Images); url != "" {
			return url, nil
		}
	}
	return "", nil
}

// GetAlbumArt returns the largest image of an album given as ID, URL or URI.
func (c *Client) GetAlbumArt(ctx context.Context, album string) (string, error) {
	id := extractID(album, "album")
	if id == "" {
		return "", errors.New("invalid album reference")
	}

	var result *spotify.FullAlbum
	err := c.retry(ctx, func() error {
		a, err := c.client.GetAlbum(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to get album")
	}
	return largestImage(result.Images), nil
}

func (c *Client) search(ctx context.Context, query string, st spotify.SearchType) (*spotify.SearchResult, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	var result *spotify.SearchResult
	err := c.retry(ctx, func() error {
		r, err := c.client.Search(ctx, query, st, spotify.Limit(5), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}
	return result, nil
}

// buildQuery builds a field-filtered search query such as `album:"X" artist:"Y"`.
func buildQuery(field, value, artist string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	q := fmt.Sprintf("%s:%q", field, value)
	if artist = strings.TrimSpace(artist); artist != "" {
		q += fmt.Sprintf(" artist:%q", artist)
	}
	return q
}

// largestImage returns the URL of the widest image.
func largestImage(images []spotify.Image) string {
	var url string
	var width spotify.Numeric
	for _, img := range images {
		if img.URL != "" && (url == "" || img.Width > width) {
			url = img.URL
			width = img.Width
		}
	}
	return url
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

func isSpotifyRef(input, kind string) bool {
	input = strings.TrimSpace(input)
	return strings.HasPrefix(input, "spotify:"+kind+":") ||
		(strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/"+kind+"/"))
}

// extractID extracts the ID of kind ("album", "track", ...) from a Spotify URL or URI.
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:album:ALBUM_ID
	if prefix := "spotify:" + kind + ":"; strings.HasPrefix(input, prefix) {
		return strings.TrimPrefix(input, prefix)
	}

	// Handle URL format: https://open.spotify.com/album/ALBUM_ID or https://open.spotify.com/intl-XX/album/ALBUM_ID
	segment := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, segment) {
		parts := strings.Split(input, segment)
		// Remove query parameters and trailing slashes
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	// Assume it's already an ID
	return input
}
