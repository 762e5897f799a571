package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// bufferLogger builds a logger writing JSON into the returned buffer.
func bufferLogger(t *testing.T, mutate func(*Config)) (*Logger, *bytes.Buffer) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	var buf bytes.Buffer
	logger, err := newLogger(cfg, nil, zapcore.AddSync(&buf))
	require.NoError(t, err)
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger.Underlying())

	cfg := NewDefaultConfig()
	cfg.Format = "yaml"
	_, err = NewLogger(cfg, nil)
	assert.ErrorContains(t, err, "invalid config")
}

func TestLogger_WritesJSON(t *testing.T) {
	logger, buf := bufferLogger(t, nil)

	ctx := WithTool(WithSessionID(context.Background(), "s-1"), "sequentialThought")
	logger.Info(ctx, "step accepted", zap.Int("thoughtNumber", 2))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "step accepted", line["msg"])
	assert.Equal(t, "thinkd", line["service"])
	assert.Equal(t, "s-1", line["session.id"])
	assert.Equal(t, "sequentialThought", line["mcp.tool"])
	assert.EqualValues(t, 2, line["thoughtNumber"])
	assert.Contains(t, line, "ts")
	assert.Contains(t, line["caller"], "logger_test.go", "caller skips the wrapper")
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := bufferLogger(t, func(c *Config) { c.Level = "warn" })
	ctx := context.Background()

	logger.Trace(ctx, "trace")
	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["msg"])
	assert.Equal(t, "error", lines[1]["msg"])
	assert.Contains(t, lines[1], "stacktrace")
}

func TestLogger_TraceLevelName(t *testing.T) {
	logger, buf := bufferLogger(t, func(c *Config) { c.Level = "trace" })
	logger.Trace(context.Background(), "dump")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "trace", lines[0]["level"])
}

func TestLogger_Redaction(t *testing.T) {
	logger, buf := bufferLogger(t, nil)
	ctx := context.Background()

	logger.Info(ctx, "calling scorer with Bearer abc.def.ghi",
		zap.String("api_key", "sk-live-0123456789"),
		zap.String("note", "key is sk-live-0123456789"),
		zap.Error(errors.New("401: Bearer abc.def.ghi rejected")),
		zap.String("model", "gpt-4o-mini"),
	)
	logger.With(zap.String("token", "t0k3n")).Info(ctx, "child")

	out := buf.String()
	assert.NotContains(t, out, "abc.def.ghi")
	assert.NotContains(t, out, "sk-live-0123456789")
	assert.NotContains(t, out, "t0k3n")
	assert.Contains(t, out, "gpt-4o-mini")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "[REDACTED]", lines[0]["api_key"])
	assert.Equal(t, "key is [REDACTED]", lines[0]["note"])
	assert.Equal(t, "[REDACTED]", lines[1]["token"])
}

func TestLogger_ConsoleFormat(t *testing.T) {
	logger, buf := bufferLogger(t, func(c *Config) { c.Format = "console" })
	logger.Warn(context.Background(), "plain text")
	assert.Contains(t, buf.String(), "warn")
	assert.Contains(t, buf.String(), "plain text")
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	logger.With(zap.String("component", "registry")).Named("session").Info(context.Background(), "evicted")

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "session", logs[0].LoggerName)
	assert.Equal(t, "registry", logs[0].ContextMap()["component"])
}

func TestLogger_Enabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	assert.False(t, logger.Enabled(TraceLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
}

func TestLogger_Sync(t *testing.T) {
	logger, _ := bufferLogger(t, nil)
	assert.NoError(t, logger.Sync())
}
