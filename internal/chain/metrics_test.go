package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregator_RunningMeans(t *testing.T) {
	agg := NewAggregator(10)

	agg.Record(Sample{ProcessingTime: 10 * time.Millisecond, Success: true, Confidence: 0.4})
	agg.Record(Sample{ProcessingTime: 20 * time.Millisecond, Success: false, Confidence: 0.1})
	m := agg.Record(Sample{ProcessingTime: 30 * time.Millisecond, Success: true, Confidence: 0.9})

	assert.Equal(t, 3, m.TotalSteps)
	assert.InDelta(t, 20.0, m.AverageProcessingTime, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.SuccessRate, 1e-9)
	assert.Equal(t, 0.9, m.LastConfidence)
	assert.Equal(t, []float64{10, 20, 30}, m.ProcessingTimes)
}

func TestAggregator_EvictsOldest(t *testing.T) {
	agg := NewAggregator(3)
	for i := 1; i <= 5; i++ {
		agg.Record(Sample{ProcessingTime: time.Duration(i) * time.Millisecond, Success: i%2 == 0})
	}

	m := agg.Snapshot()
	assert.Equal(t, 5, m.TotalSteps, "total counts every recorded sample")
	assert.Equal(t, []float64{3, 4, 5}, m.ProcessingTimes)
	assert.InDelta(t, 4.0, m.AverageProcessingTime, 1e-9)
	assert.InDelta(t, 1.0/3.0, m.SuccessRate, 1e-9)
}

func TestAggregator_RejectedKeepsLastConfidence(t *testing.T) {
	agg := NewAggregator(5)
	agg.Record(Sample{Success: true, Confidence: 0.7})
	m := agg.Record(Sample{Rejected: true, Confidence: 0.2})

	assert.Equal(t, 0.7, m.LastConfidence)
	assert.Equal(t, 0.5, m.SuccessRate)
}

func TestAggregator_DeterministicReplay(t *testing.T) {
	samples := []Sample{
		{ProcessingTime: 3 * time.Millisecond, Success: true, Confidence: 0.2, Resource: ResourceUsage{MemoryBytes: 100}},
		{ProcessingTime: 9 * time.Millisecond, Success: false, Confidence: 0.8, Resource: ResourceUsage{MemoryBytes: 900}},
		{ProcessingTime: 1 * time.Millisecond, Success: true, Rejected: true, Resource: ResourceUsage{MemoryBytes: 50}},
		{ProcessingTime: 4 * time.Millisecond, Success: true, Confidence: 0.6, Resource: ResourceUsage{MemoryBytes: 400}},
	}

	replay := func() Metrics {
		agg := NewAggregator(3)
		var m Metrics
		for _, s := range samples {
			m = agg.Record(s)
		}
		return m
	}

	first := replay()
	second := replay()
	assert.Equal(t, first, second)
	assert.Equal(t, int64(900), first.PeakMemoryBytes)
	assert.Equal(t, int64(400), first.ResourceUsage.MemoryBytes)
}

func TestAggregator_EmptySnapshot(t *testing.T) {
	m := NewAggregator(0).Snapshot()
	assert.Equal(t, 0, m.TotalSteps)
	assert.Equal(t, 0.0, m.SuccessRate)
	assert.Empty(t, m.ProcessingTimes)
}

func TestEstimateResource(t *testing.T) {
	r := EstimateResource(1000, 2, 1500*time.Microsecond)
	assert.Equal(t, int64(1000+2*nodeOverheadBytes), r.MemoryBytes)
	assert.InDelta(t, 1.5, r.CPUTimeMs, 1e-9)
}
