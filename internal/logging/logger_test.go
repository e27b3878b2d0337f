package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(Config{})

	Info().Str("component", "menu").Msg("menu generated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "menu", entry["component"])
	assert.Equal(t, "menu generated", entry["message"])
}

func TestInit_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(Config{})

	Debug().Msg("hidden")
	Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestCtx_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf})
	defer Init(Config{})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	Ctx(ctx).Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Len(t, GenerateRequestID(), 36)
}
