package embeddings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/fyrsmithlabs/thinkd/internal/embeddings"

// Call outcomes.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics records calls to the embedding backend. A nil *Metrics records
// nothing, and so does an instrument that failed to register.
type Metrics struct {
	latency  metric.Float64Histogram
	texts    metric.Int64Histogram
	failures metric.Int64Counter
}

// NewMetrics registers the instruments on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(meterName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{}
	var latencyErr, textsErr, failuresErr error

	m.latency, latencyErr = meter.Float64Histogram(
		"thinkd.embedding.duration_seconds",
		metric.WithDescription("Latency of one backend call embedding a step and its history"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	m.texts, textsErr = meter.Int64Histogram(
		"thinkd.embedding.texts",
		metric.WithDescription("Texts sent per backend call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 20, 50, 100),
	)
	m.failures, failuresErr = meter.Int64Counter(
		"thinkd.embedding.failures_total",
		metric.WithDescription("Backend calls that failed"),
		metric.WithUnit("{call}"),
	)

	if err := errors.Join(latencyErr, textsErr, failuresErr); err != nil {
		logger.Warn("embedding metrics partially registered", zap.Error(err))
	}
	return m
}

// observe records one backend call labeled by model and outcome.
func (m *Metrics) observe(ctx context.Context, model string, texts int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	attrs := metric.WithAttributeSet(attribute.NewSet(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	))

	if m.latency != nil {
		m.latency.Record(ctx, elapsed.Seconds(), attrs)
	}
	if m.texts != nil {
		m.texts.Record(ctx, int64(texts), attrs)
	}
	if err != nil && m.failures != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}
