package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TextLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(&buf, Options{Level: "warn"})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("trial discarded", "case", "GORM View", "trial", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "trial discarded")
	assert.Contains(t, out, "case=\"GORM View\"")
	assert.Contains(t, out, "trial=3")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(&buf, Options{Level: "debug", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("trial complete", "case", "SQL Prepared Statement")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "trial complete", entry["msg"])
	assert.Equal(t, "SQL Prepared Statement", entry["case"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNew_Logfmt(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(&buf, Options{Format: "logfmt"})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("run complete", "reported", 7)
	assert.Contains(t, buf.String(), "msg=\"run complete\"")
	assert.Contains(t, buf.String(), "reported=7")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "querybench.log")

	logger, closer, err := New(nil, Options{File: path})
	require.NoError(t, err)

	logger.Error("cache isolation failed", "trial", 1)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "cache isolation failed"))
}

func TestNew_InvalidOptions(t *testing.T) {
	_, _, err := New(nil, Options{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = New(nil, Options{Format: "xml"})
	assert.ErrorContains(t, err, "invalid log format")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nothing to see")
}
