package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWithWriter(&buf, "production", "warn")
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger.Info().Msg("dropped")
	logger.Warn().Str("id", "42").Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "42", entry["id"])
}

func TestInitWithWriter_BadLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "production", "loud")
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	logger := Component("sessions")
	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"sessions"`)
}
