package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochat/internal/config"
)

func TestNew_LevelParsing(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, closeFn, err := New(config.LoggingConfig{Level: tt.level, OutputPath: "stderr"})
			require.NoError(t, err)
			defer closeFn()
			assert.Equal(t, tt.expected, logger.GetLevel())
		})
	}
}

func TestNew_FileOutputWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.log")

	logger, closeFn, err := New(config.LoggingConfig{Level: "info", Format: "json", OutputPath: path})
	require.NoError(t, err)

	hubLog := Component(logger, "hub")
	hubLog.Info().Str("conversation_id", "c1").Msg("published")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "hub", entry["component"])
	assert.Equal(t, "c1", entry["conversation_id"])
	assert.Equal(t, "published", entry["message"])
}

func TestNew_BadPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{OutputPath: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}
