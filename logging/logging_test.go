package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "json", &buf)
	logger.Debug("matched", "node", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "matched", rec["msg"])
	assert.Equal(t, 3.0, rec["node"])
}

func TestNewLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New("WARN", "text", &buf)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown", "road_id", 7)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "road_id=7")
}

func TestNewDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New("", "", &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
