package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/arena/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"})
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNewLogger_LevelIsApplied(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestForComponent_TagsEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ForComponent(zap.New(core), "arena-1", "combat").Info("battle started")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "combat", entries[0].LoggerName)
	assert.Equal(t, "arena-1", entries[0].ContextMap()["server"])
}
