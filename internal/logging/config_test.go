package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, zapcore.InfoLevel, cfg.zapLevel())
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Output.Stderr)
	assert.False(t, cfg.Output.OTEL)
	assert.True(t, cfg.Sampling.Enabled)
	assert.Equal(t, time.Second, cfg.Sampling.Tick.Duration())
	assert.True(t, cfg.Redaction.Enabled)
	assert.Equal(t, "thinkd", cfg.Fields["service"])
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "trace level", mutate: func(c *Config) { c.Level = "trace" }},
		{name: "empty level", mutate: func(c *Config) { c.Level = "" }},
		{name: "unknown level", mutate: func(c *Config) { c.Level = "loud" }, errMsg: "invalid level"},
		{name: "unknown stacktrace level", mutate: func(c *Config) { c.Stacktrace = "never" }, errMsg: "invalid stacktrace_level"},
		{name: "invalid format", mutate: func(c *Config) { c.Format = "xml" }, errMsg: "format must be 'json' or 'console'"},
		{name: "no output", mutate: func(c *Config) { c.Output = OutputConfig{} }, errMsg: "at least one output"},
		{name: "zero tick", mutate: func(c *Config) { c.Sampling.Tick = 0 }, errMsg: "sampling tick"},
		{name: "zero tick sampling off", mutate: func(c *Config) { c.Sampling.Enabled = false; c.Sampling.Tick = 0 }},
		{name: "negative initial", mutate: func(c *Config) { c.Sampling.Initial = -1 }, errMsg: "sampling initial"},
		{name: "negative caller skip", mutate: func(c *Config) { c.Caller.Skip = -1 }, errMsg: "caller skip"},
		{name: "bad pattern", mutate: func(c *Config) { c.Redaction.Patterns = []string{"("} }, errMsg: "invalid redaction pattern"},
		{name: "bad pattern redaction off", mutate: func(c *Config) { c.Redaction.Enabled = false; c.Redaction.Patterns = []string{"("} }},
		{name: "empty field key", mutate: func(c *Config) { c.Fields[""] = "x" }, errMsg: "field key cannot be empty"},
		{name: "empty field value", mutate: func(c *Config) { c.Fields["env"] = "" }, errMsg: `field "env" has empty value`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_PatternTooLong(t *testing.T) {
	cfg := NewDefaultConfig()
	long := make([]byte, maxPatternLen+1)
	for i := range long {
		long[i] = 'a'
	}
	cfg.Redaction.Patterns = []string{string(long)}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}
