package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Step outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeFlagged  = "flagged"
	OutcomeRejected = "rejected"
)

var (
	// SessionsActive tracks the number of live sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "thinkd",
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of sessions currently holding chains",
		},
	)

	// ChainStepsTotal counts submitted steps.
	// Labels: engine (sequential, draft, integrated), outcome (accepted, flagged, rejected)
	ChainStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thinkd",
			Subsystem: "chain",
			Name:      "steps_total",
			Help:      "Total number of chain steps by engine and outcome",
		},
		[]string{"engine", "outcome"},
	)

	// ChainConfidence records the confidence of accepted steps.
	// Labels: engine
	ChainConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thinkd",
			Subsystem: "chain",
			Name:      "confidence",
			Help:      "Confidence of accepted chain steps",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"engine"},
	)
)

// ObserveStep records one submission. Advisory warnings mark an accepted
// step as flagged.
func ObserveStep(engine string, confidence float64, warnings int, err error) {
	switch {
	case err != nil:
		ChainStepsTotal.WithLabelValues(engine, OutcomeRejected).Inc()
		return
	case warnings > 0:
		ChainStepsTotal.WithLabelValues(engine, OutcomeFlagged).Inc()
	default:
		ChainStepsTotal.WithLabelValues(engine, OutcomeAccepted).Inc()
	}
	ChainConfidence.WithLabelValues(engine).Observe(confidence)
}
