package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerLevels(t *testing.T) {
	defer SetLogger(nil)

	require.NoError(t, InitLogger("production", "warn"))
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, GetLogger().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, InitLogger("development", ""))
	assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, InitLogger("production", "bogus"))
	assert.True(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
}

func TestGetLoggerFallback(t *testing.T) {
	SetLogger(nil)
	assert.NotNil(t, GetLogger())

	nop := zap.NewNop()
	SetLogger(nop)
	assert.Same(t, nop, GetLogger())
	SetLogger(nil)
}
