// Package integrated fuses one request across the sequential-thinking and
// chain-of-draft engines. It holds no chain state of its own: both engines
// either accept the projected step or neither does.
package integrated

import (
	"github.com/fyrsmithlabs/thinkd/internal/chain"
	"github.com/fyrsmithlabs/thinkd/internal/draft"
	"github.com/fyrsmithlabs/thinkd/internal/thought"
)

// Category is a caller-supplied classification drawn from either engine's
// vocabulary.
type Category struct {
	Type       string  `json:"type" validate:"required,oneof=analysis hypothesis verification revision solution initial critique final"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// Request is one integrated step.
type Request struct {
	StepNumber     int                `json:"stepNumber" validate:"gte=1"`
	TotalSteps     int                `json:"totalSteps" validate:"gte=1"`
	Content        string             `json:"content" validate:"required,maxbytes"`
	NextStepNeeded bool               `json:"nextStepNeeded"`
	NeedsMoreSteps bool               `json:"needsMoreSteps,omitempty"`
	IsRevision     bool               `json:"isRevision,omitempty"`
	RevisesStep    *int               `json:"revisesStep,omitempty" validate:"omitempty,gte=1"`
	BranchFromStep *int               `json:"branchFromStep,omitempty" validate:"omitempty,gte=1"`
	BranchID       string             `json:"branchId,omitempty" validate:"omitempty,max=64,printascii"`
	IsCritique     bool               `json:"isCritique,omitempty"`
	CritiqueFocus  string             `json:"critiqueFocus,omitempty" validate:"omitempty,maxbytes"`
	NeedsRevision  bool               `json:"needsRevision,omitempty"`
	ReasoningChain []string           `json:"reasoningChain,omitempty" validate:"omitempty,max=100,dive,maxbytes"`
	Category       *Category          `json:"category,omitempty"`
	Confidence     *float64           `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Context        *chain.StepContext `json:"context,omitempty"`
}

// Source names which sub-result a fused category came from.
type Source string

const (
	SourceSequential Source = "sequential"
	SourceDraft      Source = "draft"
	SourceBoth       Source = "both"
)

// FinalCategory is the fused type when either engine concluded.
const FinalCategory = "final"

// FusedCategory is the reconciled classification of both sub-results.
type FusedCategory struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Enhancements are advisory flags derived from the fused result.
type Enhancements struct {
	BranchingActive  bool               `json:"branchingActive"`
	RevisionActive   bool               `json:"revisionActive"`
	CritiqueActive   bool               `json:"critiqueActive"`
	ParallelEligible bool               `json:"parallelEligible"`
	Scores           map[string]float64 `json:"scores,omitempty"`
}

// Result is produced fresh for every accepted request.
type Result struct {
	Sequential   *thought.Result    `json:"sequential"`
	Draft        *draft.Result      `json:"draft"`
	Category     FusedCategory      `json:"category"`
	Context      *chain.StepContext `json:"context,omitempty"`
	Enhancements Enhancements       `json:"enhancements"`
	Warnings     []*chain.Error     `json:"warnings,omitempty"`
}
