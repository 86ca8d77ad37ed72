package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-engine/internal/logger"
)

func TestSetup_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	err := logger.Setup(logger.LogConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	l := logger.WithComponent("importer")
	l.Debug().Str("invoice", "INV-1").Msg("imported")
	rl := logger.WithRequestID("req-1")
	rl.Info().Msg("handled")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"importer"`)
	assert.Contains(t, string(data), `"invoice":"INV-1"`)
	assert.Contains(t, string(data), `"request_id":"req-1"`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := logger.New(logger.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := logger.DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, level, err := logger.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}
