package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Str("order_id", "ORD_1").Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "ORD_1", entry["order_id"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, "chatty")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
