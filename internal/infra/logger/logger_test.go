package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestShortCaller(t *testing.T) {
	sep := string(filepath.Separator)
	assert.Equal(t, filepath.Join("playback", "store.go")+":42",
		shortCaller(0, sep+"src"+sep+"playback"+sep+"store.go", 42))
	assert.Equal(t, "main.go:7", shortCaller(0, "main.go", 7))
}

func TestNew_JSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.WarnLevel, false)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "shown", line[zerolog.MessageFieldName])
	assert.Equal(t, "warn", line[zerolog.LevelFieldName])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.InfoLevel, true)

	logger.Info().Msg("hello console")

	assert.Contains(t, buf.String(), "hello console")
}

func TestInit_File(t *testing.T) {
	prev := zlog.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zlog.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "logs", "tapedeck.log")
	closeLog, err := Init(Config{Output: path, File: path, Level: "info"})
	require.NoError(t, err)

	zlog.Info().Msg("written to file")
	closeLog()
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestInit_Stdout(t *testing.T) {
	prev := zlog.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zlog.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	closeLog, err := Init(Config{Output: "stdout", Level: "debug"})
	require.NoError(t, err)
	defer closeLog()

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
