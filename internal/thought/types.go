// Package thought implements the sequential-thinking engine: a tree of
// numbered reasoning steps with a main line, named branches forked from
// existing steps, and revisions that supersede earlier steps.
package thought

import (
	"github.com/fyrsmithlabs/thinkd/internal/chain"
)

// CategoryType classifies a thought.
type CategoryType string

const (
	CategoryAnalysis     CategoryType = "analysis"
	CategoryHypothesis   CategoryType = "hypothesis"
	CategoryVerification CategoryType = "verification"
	CategoryRevision     CategoryType = "revision"
	CategorySolution     CategoryType = "solution"
)

// IsValid reports whether t is a known thought category.
func (t CategoryType) IsValid() bool {
	switch t {
	case CategoryAnalysis, CategoryHypothesis, CategoryVerification, CategoryRevision, CategorySolution:
		return true
	}
	return false
}

// Category is a thought classification with its confidence.
type Category struct {
	Type       CategoryType `json:"type" validate:"required,oneof=analysis hypothesis verification revision solution"`
	Confidence float64      `json:"confidence" validate:"gte=0,lte=1"`
}

// Step is one sequential-thinking submission.
type Step struct {
	ThoughtNumber     int                `json:"thoughtNumber" validate:"gte=1"`
	TotalThoughts     int                `json:"totalThoughts" validate:"gte=1"`
	Content           string             `json:"content" validate:"required,maxbytes"`
	NextThoughtNeeded bool               `json:"nextThoughtNeeded"`
	NeedsMoreThoughts bool               `json:"needsMoreThoughts,omitempty"`
	BranchID          string             `json:"branchId,omitempty" validate:"omitempty,max=64,printascii"`
	BranchFromThought *int               `json:"branchFromThought,omitempty" validate:"omitempty,gte=1"`
	IsRevision        bool               `json:"isRevision,omitempty"`
	RevisesThought    *int               `json:"revisesThought,omitempty" validate:"omitempty,gte=1"`
	Category          *Category          `json:"category,omitempty"`
	Confidence        *float64           `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Context           *chain.StepContext `json:"context,omitempty"`
}

// MainLine is the line name of non-branch thoughts.
const MainLine = "main"

// Node is an accepted thought as stored in the chain, with its category and
// confidence normalized.
type Node struct {
	Step
	Line     string `json:"line"`
	Depth    int    `json:"depth"`
	Position int    `json:"position"`
}

// Summary is the short form of a node echoed in result history.
type Summary struct {
	ThoughtNumber int          `json:"thoughtNumber"`
	Line          string       `json:"line"`
	Category      CategoryType `json:"category"`
	Confidence    float64      `json:"confidence"`
	IsRevision    bool         `json:"isRevision,omitempty"`
	Superseded    bool         `json:"superseded,omitempty"`
	Content       string       `json:"content"`
}

// BranchInfo describes one alternate line.
type BranchInfo struct {
	ID         string `json:"id"`
	FromNumber int    `json:"fromThought"`
	Depth      int    `json:"depth"`
	Length     int    `json:"length"`
}

// Efficiency summarizes how the chain has been explored.
type Efficiency struct {
	BranchCount         int     `json:"branchCount"`
	RevisionCount       int     `json:"revisionCount"`
	MaxBranchDepth      int     `json:"maxBranchDepth"`
	BranchingEfficiency float64 `json:"branchingEfficiency"`
}

// Result is returned for every accepted step.
type Result struct {
	ChainID       string         `json:"chainId"`
	Node          Node           `json:"node"`
	Status        chain.Status   `json:"status"`
	TotalThoughts int            `json:"totalThoughts"`
	Warnings      []*chain.Error `json:"warnings,omitempty"`
	Metrics       *chain.Metrics `json:"metrics,omitempty"`
	Efficiency    Efficiency     `json:"efficiency"`
	History       []Summary      `json:"history"`
	Branches      []string       `json:"branches,omitempty"`
}

// Snapshot is the read-only structural view of a chain.
type Snapshot struct {
	ChainID        string        `json:"chainId"`
	Status         chain.Status  `json:"status"`
	NodeCount      int           `json:"nodeCount"`
	MainLineLength int           `json:"mainLineLength"`
	TotalThoughts  int           `json:"totalThoughts"`
	Branches       []BranchInfo  `json:"branches"`
	Efficiency     Efficiency    `json:"efficiency"`
	Metrics        chain.Metrics `json:"metrics"`
}
