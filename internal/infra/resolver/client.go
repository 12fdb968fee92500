// Package resolver resolves track IDs to playable URLs through the library server.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

var (
	// ErrBadRequest is returned when the library rejects the request.
	ErrBadRequest = errors.New("bad resolve request")
	// ErrTrackNotFound is returned when the library does not know the track.
	ErrTrackNotFound = errors.New("track not found")
)

const defaultTimeout = 10 * time.Second

// Client resolves track IDs against the library's player endpoint.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Config represents resolver client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration // 0 = default
}

type playerRequest struct {
	TrackID string `json:"trackId"`
}

type playerResponse struct {
	URL string `json:"url"`
}

// New creates a new resolver client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("library URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid library URL %q", cfg.BaseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Newf("unsupported library URL scheme: %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Resolve returns a currently valid playable URL for trackID. Relative URLs
// returned by the library are resolved against the base URL.
func (c *Client) Resolve(ctx context.Context, trackID string) (string, error) {
	body, err := json.Marshal(playerRequest{TrackID: trackID})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode request")
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: "api/player"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return "", errors.Wrapf(ErrBadRequest, "track %s: %s", trackID, strings.TrimSpace(string(data)))
	case http.StatusNotFound:
		return "", errors.Wrapf(ErrTrackNotFound, "track %s", trackID)
	default:
		return "", errors.Newf("library returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result playerResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", errors.Wrap(err, "failed to decode response")
	}
	if result.URL == "" {
		return "", errors.Newf("library returned no url for track %s", trackID)
	}

	ref, err := url.Parse(result.URL)
	if err != nil {
		return "", errors.Wrapf(err, "library returned an invalid url %q", result.URL)
	}
	resolved := c.baseURL.ResolveReference(ref).String()

	zlog.Debug().Msgf("resolver: resolved track: track=%s url=%s", trackID, resolved)
	return resolved, nil
}
