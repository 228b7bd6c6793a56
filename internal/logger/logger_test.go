package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn", false)

	log.Info().Msg("hidden")
	log.Warn().Str("room_id", "r1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"room_id":"r1"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "loud", false)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log = newLogger(&buf, "", false)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
