package chain

import (
	"sync"
	"time"
)

// ResourceUsage is a synthetic estimate of the work a step cost.
type ResourceUsage struct {
	MemoryBytes int64   `json:"memoryBytes"`
	CPUTimeMs   float64 `json:"cpuTimeMs"`
}

// Sample is one observation folded into an Aggregator.
type Sample struct {
	ProcessingTime time.Duration
	Resource       ResourceUsage
	// Success is true when the step was accepted without any validation finding.
	Success bool
	// Rejected samples count toward the success rate but leave LastConfidence alone.
	Rejected   bool
	Confidence float64
}

// Metrics is a snapshot of an engine's rolling statistics.
type Metrics struct {
	TotalSteps            int           `json:"totalSteps"`
	AverageProcessingTime float64       `json:"averageProcessingTime"` // milliseconds
	SuccessRate           float64       `json:"successRate"`
	LastConfidence        float64       `json:"lastConfidence"`
	ProcessingTimes       []float64     `json:"processingTimes"` // milliseconds, oldest first
	ResourceUsage         ResourceUsage `json:"resourceUsage"`
	PeakMemoryBytes       int64         `json:"peakMemoryBytes"`
}

// Aggregator maintains a bounded window of samples for a single engine.
// Averages are simple means over the retained window, so replaying the same
// ordered samples into a fresh Aggregator always yields the same Metrics.
type Aggregator struct {
	mu       sync.Mutex
	capacity int

	times    []float64
	success  []bool
	head     int // index of the oldest retained sample
	count    int // retained samples
	total    int // samples ever recorded
	last     float64
	resource ResourceUsage
	peak     int64
}

// NewAggregator creates an aggregator retaining at most capacity samples.
// A non-positive capacity falls back to DefaultHistorySize.
func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Aggregator{
		capacity: capacity,
		times:    make([]float64, capacity),
		success:  make([]bool, capacity),
	}
}

// Record folds s into the window and returns the refreshed snapshot.
// Once the window is full the oldest sample is evicted.
func (a *Aggregator) Record(s Sample) Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	ms := float64(s.ProcessingTime) / float64(time.Millisecond)
	idx := (a.head + a.count) % a.capacity
	if a.count == a.capacity {
		idx = a.head
		a.head = (a.head + 1) % a.capacity
	} else {
		a.count++
	}
	a.times[idx] = ms
	a.success[idx] = s.Success
	a.total++

	if !s.Rejected {
		a.last = s.Confidence
	}
	a.resource = s.Resource
	if s.Resource.MemoryBytes > a.peak {
		a.peak = s.Resource.MemoryBytes
	}

	return a.snapshot()
}

// Snapshot returns the current statistics without recording anything.
func (a *Aggregator) Snapshot() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

func (a *Aggregator) snapshot() Metrics {
	m := Metrics{
		TotalSteps:      a.total,
		LastConfidence:  a.last,
		ProcessingTimes: make([]float64, 0, a.count),
		ResourceUsage:   a.resource,
		PeakMemoryBytes: a.peak,
	}
	if a.count == 0 {
		return m
	}

	var sum float64
	var ok int
	for i := 0; i < a.count; i++ {
		idx := (a.head + i) % a.capacity
		m.ProcessingTimes = append(m.ProcessingTimes, a.times[idx])
		sum += a.times[idx]
		if a.success[idx] {
			ok++
		}
	}
	m.AverageProcessingTime = sum / float64(a.count)
	m.SuccessRate = float64(ok) / float64(a.count)
	return m
}

// Node overhead used by EstimateResource, in bytes.
const nodeOverheadBytes = 256

// EstimateResource returns the synthetic footprint of a chain holding nodes
// nodes whose text totals payloadBytes, with elapsed charged as CPU time.
func EstimateResource(payloadBytes, nodes int, elapsed time.Duration) ResourceUsage {
	return ResourceUsage{
		MemoryBytes: int64(payloadBytes) + int64(nodes)*nodeOverheadBytes,
		CPUTimeMs:   float64(elapsed) / float64(time.Millisecond),
	}
}
