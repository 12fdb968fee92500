package media

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

// Audio container formats recognised by the in-process decoder.
const (
	formatMP3 = "mp3"
	formatWAV = "wav"
)

// maxSourceBytes caps how much of a remote source is buffered in memory.
const maxSourceBytes = 512 << 20

// fetchSource reads src fully. src may be an http(s) URL, a file:// URL or a
// local path. The returned format is derived from the extension, falling back
// to the response Content-Type.
func fetchSource(ctx context.Context, client *http.Client, src string) ([]byte, string, error) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		p := src
		if err == nil && u.Scheme == "file" {
			p = u.Path
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, "", errors.Wrapf(err, "failed to read %s", p)
		}
		format, err := formatFromExt(p)
		return data, format, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to fetch source")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Newf("unexpected status code %d fetching source", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read source body")
	}

	format, err := formatFromExt(u.Path)
	if err != nil {
		format, err = formatFromContentType(resp.Header.Get("Content-Type"))
	}
	return data, format, err
}

func formatFromExt(p string) (string, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return formatMP3, nil
	case ".wav", ".wave":
		return formatWAV, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "extension %q", path.Ext(p))
	}
}

func formatFromContentType(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", errors.Wrapf(ErrUnsupportedFormat, "content type %q", contentType)
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return formatMP3, nil
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return formatWAV, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "content type %q", mediaType)
	}
}
