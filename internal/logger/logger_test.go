package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// arrayEncoder collects appended strings
type arrayEncoder struct {
	zapcore.PrimitiveArrayEncoder
	items []string
}

func (a *arrayEncoder) AppendString(s string) {
	a.items = append(a.items, s)
}

func TestBracketLevelEncoder(t *testing.T) {
	tests := []struct {
		level zapcore.Level
		want  string
	}{
		{zapcore.DebugLevel, "[Debug]"},
		{zapcore.InfoLevel, "[Info]"},
		{zapcore.WarnLevel, "[Warning]"},
		{zapcore.ErrorLevel, "[Error]"},
		{zapcore.FatalLevel, "[Error]"},
	}
	for _, tt := range tests {
		enc := &arrayEncoder{}
		bracketLevelEncoder(tt.level, enc)
		require.Len(t, enc.items, 1)
		assert.Contains(t, enc.items[0], tt.want)
	}
}

func TestInitialize(t *testing.T) {
	defer func() {
		JSONOutput = false
		require.NoError(t, Initialize(false, false))
	}()

	require.NoError(t, Initialize(true, true))
	assert.True(t, JSONOutput)
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Initialize(false, false))
	assert.False(t, JSONOutput)
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.InfoLevel))

	assert.Equal(t, "flatten", ComponentLogger("flatten").Desugar().Name())
}
