package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name        string
		logsDir     string
		processName string
		want        string
	}{
		{
			name:        "basic path",
			logsDir:     "botlogs",
			processName: "botcore",
			want:        filepath.Join("botlogs", "botcore.20260212_213836.log"),
		},
		{
			name:        "relative path with dot",
			logsDir:     "./botlogs",
			processName: "botcore",
			want:        filepath.Join(".", "botlogs", "botcore.20260212_213836.log"),
		},
		{
			name:        "absolute path",
			logsDir:     filepath.Join("/var", "log", "botcore"),
			processName: "botcore",
			want:        filepath.Join("/var", "log", "botcore", "botcore.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.processName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}
