package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMetrics(t *testing.T) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return newMetrics(mp.Meter(meterName), zap.NewNop()), reader
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetrics_RecordedThroughService(t *testing.T) {
	m, reader := newTestMetrics(t)
	fake := &fakeEmbedder{vectors: map[string][]float32{"a": {1, 0}, "b": {0, 1}}}
	svc := NewServiceWithEmbedder(fake, Config{Model: "bge-small"}, m)

	_, err := svc.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	fake.err = errors.New("upstream down")
	_, err = svc.Embed(context.Background(), []string{"a"})
	require.Error(t, err)

	data := collect(t, reader)

	latency, ok := data["thinkd.embedding.duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok, "latency histogram not found")
	outcomes := make(map[string]uint64)
	for _, dp := range latency.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		outcomes[v.AsString()] += dp.Count
		model, _ := dp.Attributes.Value(attribute.Key("model"))
		assert.Equal(t, "bge-small", model.AsString())
	}
	assert.Equal(t, map[string]uint64{outcomeOK: 1, outcomeError: 1}, outcomes)

	texts, ok := data["thinkd.embedding.texts"].(metricdata.Histogram[int64])
	require.True(t, ok, "texts histogram not found")
	var sum int64
	for _, dp := range texts.DataPoints {
		sum += dp.Sum
	}
	assert.Equal(t, int64(3), sum)

	failures, ok := data["thinkd.embedding.failures_total"].(metricdata.Sum[int64])
	require.True(t, ok, "failures counter not found")
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe(context.Background(), "model", 1, 0, nil)
	})

	svc := NewServiceWithEmbedder(&fakeEmbedder{vectors: map[string][]float32{"a": {1}}}, Config{Model: "m"}, nil)
	_, err := svc.Embed(context.Background(), []string{"a"})
	assert.NoError(t, err)
}
