package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestTraceLevel(t *testing.T) {
	assert.Equal(t, int8(-2), int8(TraceLevel))
	assert.Less(t, TraceLevel, zapcore.DebugLevel)
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"trace", TraceLevel},
		{"TRACE", TraceLevel},
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := LevelFromString("verbose")
	assert.Error(t, err)
}

func TestEncodeLevel_Trace(t *testing.T) {
	enc := &levelCapture{}
	encodeLevel(TraceLevel, enc)
	encodeLevel(zapcore.WarnLevel, enc)
	assert.Equal(t, []string{"trace", "warn"}, enc.values)
}

type levelCapture struct {
	zapcore.PrimitiveArrayEncoder
	values []string
}

func (c *levelCapture) AppendString(s string) { c.values = append(c.values, s) }
