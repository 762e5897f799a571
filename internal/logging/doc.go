// Package logging provides structured logging for thinkd with
// OpenTelemetry integration.
//
// The package wraps Zap with:
//   - a Trace level (-2, below Debug)
//   - stderr output, since stdout carries the MCP stdio transport
//   - an optional OpenTelemetry log bridge
//   - correlation fields taken from the context (trace, session, tool, request)
//   - redaction of sensitive keys and value patterns
//   - sampling below error level
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	if err := appCfg.Section("logging", cfg); err != nil {
//	    return err
//	}
//	logger, err := logging.NewLogger(cfg, otelLogProvider)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, "research-1")
//	ctx = logging.WithTool(ctx, "sequentialThought")
//	logger.Info(ctx, "step accepted", zap.Int("thoughtNumber", 3))
//
// Packages that take a *zap.Logger receive logger.Underlying() and add the
// correlation fields themselves with ContextFields.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "step accepted", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "step accepted")
//	tl.AssertNoSecrets(t)
package logging
