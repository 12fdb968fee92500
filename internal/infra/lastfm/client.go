// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrNotAuthenticated is returned by write methods when no secret or session key is configured.
var ErrNotAuthenticated = errors.New("last.fm API secret and session key are required")

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	apiSecret  string
	sessionKey string
	baseURL    string
	httpClient *http.Client

	// Cache for track.getInfo results
	trackInfoCache map[string]*TrackInfo
	cacheMu        sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey     string
	APISecret  string // Required for UpdateNowPlaying
	SessionKey string // Required for UpdateNowPlaying
}

// NowPlaying is the track announced with UpdateNowPlaying.
type NowPlaying struct {
	Track    string
	Artist   string
	Album    string
	Duration time.Duration
}

// TrackInfo represents the subset of track.getInfo used by tapedeck.
type TrackInfo struct {
	Name     string
	Artist   string
	Album    string
	ImageURL string // Largest album image, may be empty
}

// GetInfoResponse represents the response from track.getInfo API.
type GetInfoResponse struct {
	Track struct {
		Name   string `json:"name"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
		Album struct {
			Title string `json:"title"`
			Image []struct {
				URL  string `json:"#text"`
				Size string `json:"size"`
			} `json:"image"`
		} `json:"album"`
	} `json:"track"`
}

// LastFMError represents an error response from Last.fm API.
type LastFMError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	return &Client{
		apiKey:         cfg.APIKey,
		apiSecret:      cfg.APISecret,
		sessionKey:     cfg.SessionKey,
		baseURL:        "https://ws.audioscrobbler.com/2.0/",
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		trackInfoCache: make(map[string]*TrackInfo),
	}, nil
}

// CanWrite reports whether write methods are available.
func (c *Client) CanWrite() bool {
	return c.apiSecret != "" && c.sessionKey != ""
}

// UpdateNowPlaying notifies Last.fm that the user started listening to a track.
// Reference: https://www.last.fm/api/show/track.updateNowPlaying
func (c *Client) UpdateNowPlaying(ctx context.Context, np NowPlaying) error {
	if !c.CanWrite() {
		return ErrNotAuthenticated
	}
	if np.Track == "" || np.Artist == "" {
		return errors.New("track name and artist name are required")
	}

	params := url.Values{}
	params.Set("method", "track.updateNowPlaying")
	params.Set("api_key", c.apiKey)
	params.Set("sk", c.sessionKey)
	params.Set("track", np.Track)
	params.Set("artist", np.Artist)
	if np.Album != "" {
		params.Set("album", np.Album)
	}
	if np.Duration > 0 {
		params.Set("duration", strconv.Itoa(int(np.Duration.Seconds())))
	}
	params.Set("api_sig", c.sign(params))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(params.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := c.do(req); err != nil {
		return err
	}

	zlog.Debug().Msgf("lastfm: now playing updated: %s - %s", np.Artist, np.Track)
	return nil
}

// GetTrackInfo retrieves track metadata from Last.fm.
// Reference: https://www.last.fm/api/show/track.getInfo
func (c *Client) GetTrackInfo(ctx context.Context, trackName, artistName string) (*TrackInfo, error) {
	if trackName == "" || artistName == "" {
		return nil, errors.New("track name and artist name are required")
	}

	// Check cache first
	cacheKey := artistName + "\x00" + trackName
	c.cacheMu.RLock()
	if info, ok := c.trackInfoCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("lastfm: using cached track info: %s - %s", artistName, trackName)
		return info, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "track.getInfo")
	params.Set("api_key", c.apiKey)
	params.Set("artist", artistName)
	params.Set("track", trackName)
	params.Set("format", "json")
	params.Set("autocorrect", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var response GetInfoResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	info := &TrackInfo{
		Name:   response.Track.Name,
		Artist: response.Track.Artist.Name,
		Album:  response.Track.Album.Title,
	}
	// Images are listed from small to mega; keep the largest non-empty one.
	for _, img := range response.Track.Album.Image {
		if img.URL != "" {
			info.ImageURL = img.URL
		}
	}

	c.cacheMu.Lock()
	c.trackInfoCache[cacheKey] = info
	c.cacheMu.Unlock()

	return info, nil
}

// do sends req and returns the body, converting Last.fm error payloads into errors.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiError LastFMError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		return nil, errors.Errorf("last.fm API error %d: %s", apiError.Error, apiError.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("last.fm API returned status %d", resp.StatusCode)
	}

	return body, nil
}

// sign computes api_sig: md5 of the sorted key/value pairs followed by the secret.
// Reference: https://www.last.fm/api/authspec#8
func (c *Client) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "format" || k == "callback" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	b.WriteString(c.apiSecret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
