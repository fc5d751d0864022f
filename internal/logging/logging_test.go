package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", FormatJSON)
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Int("worker", 2).Msg("task done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug entries must be filtered at info level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "task done", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, os.Getpid(), entry["pid"])
	assert.EqualValues(t, 2, entry["worker"])
	assert.Contains(t, entry, "time")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", FormatConsole)
	require.NoError(t, err)

	logger.Debug().Msg("acquiring lock")
	out := buf.String()
	assert.Contains(t, out, "acquiring lock")
	assert.Contains(t, out, "pid=")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "chatty", FormatJSON)
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
