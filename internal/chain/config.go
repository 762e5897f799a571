package chain

import "fmt"

// Config holds the tuning values shared by every engine instance.
// It is read-only once constructed and shared by reference.
type Config struct {
	// MaxDepth bounds branch nesting. The main line is depth 0.
	MaxDepth int `json:"maxDepth" koanf:"max_depth" validate:"gte=1,lte=100"`

	// ConfidenceThreshold is the fused confidence above which an integrated
	// result is marked eligible for parallel handling.
	ConfidenceThreshold float64 `json:"confidenceThreshold" koanf:"confidence_threshold" validate:"gte=0,lte=1"`

	// MinConfidenceGrowth is the largest regression tolerated between two
	// consecutive main-line steps before the later one is flagged.
	MinConfidenceGrowth float64 `json:"minConfidenceGrowth" koanf:"min_confidence_growth" validate:"gte=0,lte=1"`

	// MinRevisionConfidence is the lowest confidence a revision may carry.
	MinRevisionConfidence float64 `json:"minRevisionConfidence" koanf:"min_revision_confidence" validate:"gte=0,lte=1"`

	BranchingEnabled bool `json:"branchingEnabled" koanf:"branching_enabled"`
	RevisionEnabled  bool `json:"revisionEnabled" koanf:"revision_enabled"`
	ParallelTasks    bool `json:"parallelTasks" koanf:"parallel_tasks"`

	// ContextWindow is the number of recent steps echoed back in results.
	ContextWindow int `json:"contextWindow" koanf:"context_window" validate:"gte=0,lte=1000"`

	// HistorySize caps the samples retained by each metrics aggregator.
	HistorySize int `json:"historySize" koanf:"history_size" validate:"gte=1,lte=100000"`
}

// Defaults for Config.
const (
	DefaultMaxDepth              = 10
	DefaultConfidenceThreshold   = 0.8
	DefaultMinConfidenceGrowth   = 0.1
	DefaultMinRevisionConfidence = 0.5
	DefaultContextWindow         = 10
	DefaultHistorySize           = 1000
)

// DefaultConfig returns the default chain configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:              DefaultMaxDepth,
		ConfidenceThreshold:   DefaultConfidenceThreshold,
		MinConfidenceGrowth:   DefaultMinConfidenceGrowth,
		MinRevisionConfidence: DefaultMinRevisionConfidence,
		BranchingEnabled:      true,
		RevisionEnabled:       true,
		ParallelTasks:         true,
		ContextWindow:         DefaultContextWindow,
		HistorySize:           DefaultHistorySize,
	}
}

// Validate checks the configuration ranges.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("chain config is nil")
	}
	if err := ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid chain config: %w", err)
	}
	return nil
}
