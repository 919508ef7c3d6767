package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/programme-lv/cprun/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	} {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logging.ParseLevel("loud")
	require.Error(t, err)
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("warn", &buf)
	require.NoError(t, err)

	logger.Info("Compiling...")
	assert.Empty(t, buf.String())

	logger.Warn("Compilation failed", "src", "main.cpp")
	assert.Contains(t, buf.String(), "Compilation failed")
	assert.Contains(t, buf.String(), "main.cpp")
}
