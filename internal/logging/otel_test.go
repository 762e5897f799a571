package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.uber.org/zap/zapcore"
)

// recordingProvider hands out a single logger that keeps emitted records.
type recordingProvider struct {
	embedded.LoggerProvider
	logger *recordingLogger
}

func (p *recordingProvider) Logger(string, ...log.LoggerOption) log.Logger { return p.logger }

type recordingLogger struct {
	embedded.Logger
	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, r log.Record) { l.records = append(l.records, r) }

func (l *recordingLogger) Enabled(context.Context, log.EnabledParameters) bool { return true }

func TestNewCore_Outputs(t *testing.T) {
	var buf bytes.Buffer
	w := zapcore.AddSync(&buf)

	cfg := NewDefaultConfig()
	core, err := newCore(cfg, nil, w)
	require.NoError(t, err)
	assert.NotNil(t, core)

	cfg.Output.OTEL = true
	core, err = newCore(cfg, nil, w)
	require.NoError(t, err, "missing provider skips the otel core")
	assert.NotNil(t, core)

	cfg.Output = OutputConfig{OTEL: true}
	_, err = newCore(cfg, nil, w)
	assert.ErrorContains(t, err, "at least one output")
}

func TestNewLogger_OTELBridge(t *testing.T) {
	provider := &recordingProvider{logger: &recordingLogger{}}

	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}
	cfg.Sampling.Enabled = false
	logger, err := newLogger(cfg, provider, zapcore.AddSync(&bytes.Buffer{}))
	require.NoError(t, err)

	logger.Debug(context.Background(), "below level")
	logger.Info(context.Background(), "exported")

	records := provider.logger.records
	require.Len(t, records, 1)
	assert.Equal(t, "exported", records[0].Body().AsString())
}
