package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 这些测试修改全局 logger，不能并行
func TestInitWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(&buf, "debug", "json"))
	t.Cleanup(Discard)

	log.Info().Str("room", "ABC123").Msg("room created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ABC123", entry["room"])
	assert.Equal(t, "room created", entry["message"])
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestInitWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(&buf, "warn", "json"))
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		Discard()
	})

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitWithWriter_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, InitWithWriter(&buf, "loud", "json"))
	assert.Error(t, InitWithWriter(&buf, "info", "xml"))
}

func TestLogPanic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(&buf, "info", "json"))
	t.Cleanup(Discard)

	LogPanic("boom")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "recovered from panic")
}
