package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{" WARNING ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParseLevel(tt.in, zerolog.InfoLevel), tt.in)
	}
}

func TestNew_FileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "roaster.log")
	log, closer, err := New(Config{Level: "debug", File: path})
	require.NoError(t, err)

	log.Debug().Str("component", "uploader").Msg("batch uploaded")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &line))
	require.Equal(t, "debug", line["level"])
	require.Equal(t, "uploader", line["component"])
	require.Equal(t, "batch uploaded", line["message"])
}

func TestNew_ConsoleRespectsLevel(t *testing.T) {
	var out bytes.Buffer
	log, _, err := newLogger(Config{Level: "warn"}, &out)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	require.NotContains(t, out.String(), "hidden")
	require.Contains(t, out.String(), "shown")
}
