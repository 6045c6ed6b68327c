package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRequestContext_Fields(t *testing.T) {
	var buf bytes.Buffer
	reqCtx := NewRequestContext(newBufferLogger(&buf), "POST", "/api/v1/session/answer", 7)
	require.NotEmpty(t, reqCtx.RequestID)

	reqCtx.Error("request failed", errors.New("boom"), slog.Int(LogFieldStatus, 500))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, reqCtx.RequestID, entry[LogFieldRequestID])
	assert.Equal(t, float64(7), entry[LogFieldUserID])
	assert.Equal(t, "/api/v1/session/answer", entry[LogFieldRoute])
	assert.Equal(t, float64(500), entry[LogFieldStatus])
	assert.Equal(t, "boom", entry["error"])
}

func TestRequestContext_KeepsGivenID(t *testing.T) {
	reqCtx := NewRequestContextWithID(nil, "req-1", "GET", "/api/v1/sets", 1)
	assert.Equal(t, "req-1", reqCtx.RequestID)
	assert.NotNil(t, reqCtx.Logger)

	generated := NewRequestContextWithID(nil, "", "GET", "/api/v1/sets", 1)
	assert.NotEmpty(t, generated.RequestID)
	assert.NotEqual(t, NewRequestContext(nil, "GET", "/", 1).RequestID, generated.RequestID)
}

func TestLoggerFromContext(t *testing.T) {
	assert.Equal(t, slog.Default(), LoggerFromContext(context.Background()))

	var buf bytes.Buffer
	reqCtx := NewRequestContextWithID(newBufferLogger(&buf), "req-2", "GET", "/api/v1/audio", 3)
	ctx := WithRequestContext(context.Background(), reqCtx)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)

	LoggerFromContext(ctx).Info("speech falls back to offline")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-2", entry[LogFieldRequestID])
	assert.Equal(t, "/api/v1/audio", entry[LogFieldRoute])
}
