package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetCorrelationID(ctx))

	ctx = WithCorrelationID(ctx)
	id := GetCorrelationID(ctx)
	assert.NotEmpty(t, id)

	// existing IDs are kept
	assert.Equal(t, id, GetCorrelationID(WithCorrelationID(ctx)))

	assert.Equal(t, "req-1", GetCorrelationID(SetCorrelationID(context.Background(), "req-1")))
	assert.NotEmpty(t, GetCorrelationID(SetCorrelationID(context.Background(), "")))
}

func TestLoggerAddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelInfo, &buf)

	ctx := SetCorrelationID(context.Background(), "abc")
	logger.Info(ctx, "hello", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "abc", entry["correlation_id"])
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelWarn, &buf)

	logger.Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len())

	logger.Warn(context.Background(), "kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123456", "1***6"},
		{"aB3dE6gH", "a***H"},
		{"123", "***"},
		{"", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskCredential(tt.input))
		})
	}
}
