package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSource_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3"))
	}))
	defer server.Close()

	data, format, err := fetchSource(context.Background(), server.Client(), server.URL+"/stream/1")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3"), data)
	assert.Equal(t, formatMP3, format)

	_, _, err = fetchSource(context.Background(), server.Client(), server.URL+"/missing")
	assert.Error(t, err)
}

func TestFetchSource_File(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tone.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF"), 0o644))

	for _, src := range []string{p, "file://" + p} {
		data, format, err := fetchSource(context.Background(), http.DefaultClient, src)
		require.NoError(t, err)
		assert.Equal(t, []byte("RIFF"), data)
		assert.Equal(t, formatWAV, format)
	}

	_, _, err := fetchSource(context.Background(), http.DefaultClient, filepath.Join(dir, "missing.mp3"))
	assert.Error(t, err)
}
