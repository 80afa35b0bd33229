package logger

import (
	"flashgen/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_BeforeInitializeIsUsable(t *testing.T) {
	require.NotNil(t, Get())
	Get().Info("no-op logger accepts entries")
}

func TestInitialize_Levels(t *testing.T) {
	t.Cleanup(func() { _ = Initialize(config.LoggerConfig{}) })

	require.NoError(t, Initialize(config.LoggerConfig{Level: "debug", Env: "development"}))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Initialize(config.LoggerConfig{Level: "warn", Env: "production"}))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Initialize(config.LoggerConfig{}))
	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestInitialize_InvalidLevel(t *testing.T) {
	assert.Error(t, Initialize(config.LoggerConfig{Level: "chatty"}))
}

func TestReplace_RestoresPrevious(t *testing.T) {
	before := Get()
	core, logs := observer.New(zapcore.InfoLevel)

	restore := Replace(zap.New(core))
	Get().Info("captured")
	restore()
	Get().Info("not captured")

	assert.Equal(t, 1, logs.FilterMessage("captured").Len())
	assert.Equal(t, 1, logs.Len())
	assert.Same(t, before, Get())
}
