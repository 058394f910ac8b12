package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewProduction_Levels(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"trace", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		l, err := NewProduction(tt.in)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(tt.want), tt.in)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, l.Core().Enabled(tt.want-1), tt.in)
		}
	}
}

func TestZap_ForwardsLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	z := NewZap(zap.New(core))
	z.LogDebug("d")
	z.LogInfo("i")
	z.LogWarn("w")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "i", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}

func TestNewZap_NilIsNop(t *testing.T) {
	assert.NotPanics(t, func() { NewZap(nil).LogInfo("x") })
}
