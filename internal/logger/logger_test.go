package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := Setup("warn", "json", &buf)

	l.Info().Msg("hidden")
	l.Warn().Str("venue", "jogyesa").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "jogyesa", entry["venue"])
	assert.Equal(t, "shown", entry["message"])
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := Setup("chatty", "console", &buf)

	l.Debug().Msg("hidden")
	l.Info().Msg("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestOpenSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")

	l, closer, err := OpenSession(path, "debug")
	require.NoError(t, err)
	l.Debug().Msg("started")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"started"`)

	_, _, err = OpenSession(filepath.Join(t.TempDir(), "missing", "x.log"), "info")
	assert.Error(t, err)
}
