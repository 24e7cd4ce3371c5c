package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonne120/flowcore/internal/config"
)

func TestNewLogger_ValidLevel(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "info", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NoError(t, logger.Sync())
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LogConfig{Level: "verbose", Format: "console"})
	assert.Error(t, err)
}

func TestNewLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(config.LogConfig{
		Level:  "debug",
		Format: "json",
		Output: config.FileOutputConfig{
			Enabled:   true,
			Path:      dir + "/flowcore.log",
			MaxSizeMB: 1,
		},
	})
	require.NoError(t, err)
	logger.Info("test message")
	require.NoError(t, logger.Sync())
}
