package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithSessionID(context.Background(), "s-2")

	tl.Trace(ctx, "chain dump", zap.Int("nodes", 4))
	tl.Info(ctx, "step accepted", zap.String("engine", "draft"))

	tl.AssertLogged(t, TraceLevel, "chain dump")
	tl.AssertLogged(t, zapcore.InfoLevel, "step")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "step")
	tl.AssertField(t, "step accepted", "engine", "draft")
	tl.AssertField(t, "step accepted", "session.id", "s-2")
	tl.AssertNoSecrets(t)
	assert.Len(t, tl.All(), 2)

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestTestLogger_DetectsSecrets(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "leak", zap.String("password", "hunter2"))

	probe := &failureRecorder{}
	tl.AssertNoSecrets(probe)
	assert.True(t, probe.failed)
}

// failureRecorder is a testing.TB that only records Errorf calls.
type failureRecorder struct {
	testing.TB
	failed bool
}

func (f *failureRecorder) Helper()               {}
func (f *failureRecorder) Errorf(string, ...any) { f.failed = true }
