package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/RedUtils/botcore/internal/dispatcher"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*DispatcherLogger)
		level string
		msg   string
	}{
		{
			name:  "debug",
			log:   func(l *DispatcherLogger) { l.Debug("handling event", "command", ":TICK:", "args", 1) },
			level: "debug",
			msg:   "handling event",
		},
		{
			name:  "info",
			log:   func(l *DispatcherLogger) { l.Info("match started", "command", ":TICK:") },
			level: "info",
			msg:   "match started",
		},
		{
			name:  "error",
			log:   func(l *DispatcherLogger) { l.Error("event failed", "command", ":TICK:") },
			level: "error",
			msg:   "event failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

			tt.log(dl)

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.msg, entry["message"])
			assert.Equal(t, ":TICK:", entry["command"])
		})
	}
}

func TestDispatcherLogger_NumericField(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("tick", "count", 42)

	assert.Equal(t, float64(42), decodeLine(t, &buf)["count"])
}

func TestDispatcherLogger_LevelFiltered(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("hidden")

	assert.Empty(t, buf.String())
}

func TestDispatcherLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("event failed", "command", ":TICK:", "error", errors.New("bad packet"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "dispatcher", entry["component"])
	assert.Equal(t, "bad packet", entry["error"])
}

func TestToFields(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want map[string]any
	}{
		{name: "pairs", in: []any{"a", 1, "b", "x"}, want: map[string]any{"a": 1, "b": "x"}},
		{name: "non string key", in: []any{"a", 1, 2, "skipped", "dangling"}, want: map[string]any{"a": 1, badKey: 2, "skipped": "dangling"}},
		{name: "trailing key", in: []any{"a", 1, "dangling"}, want: map[string]any{"a": 1, badKey: "dangling"}},
		{name: "error value", in: []any{"error", errors.New("boom")}, want: map[string]any{"error": "boom"}},
		{name: "empty", in: nil, want: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toFields(tt.in))
		})
	}
}
