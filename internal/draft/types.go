// Package draft implements the chain-of-draft engine: a linear sequence of
// drafts annotated by critiques and superseded by revisions.
package draft

import (
	"github.com/fyrsmithlabs/thinkd/internal/chain"
)

// CategoryType classifies a draft step.
type CategoryType string

const (
	CategoryInitial  CategoryType = "initial"
	CategoryCritique CategoryType = "critique"
	CategoryRevision CategoryType = "revision"
	CategoryFinal    CategoryType = "final"
)

// IsValid reports whether t is a known draft category.
func (t CategoryType) IsValid() bool {
	switch t {
	case CategoryInitial, CategoryCritique, CategoryRevision, CategoryFinal:
		return true
	}
	return false
}

// Category is a draft classification with its confidence.
type Category struct {
	Type       CategoryType `json:"type" validate:"required,oneof=initial critique revision final"`
	Confidence float64      `json:"confidence" validate:"gte=0,lte=1"`
}

// Step is one chain-of-draft submission.
type Step struct {
	DraftNumber    int                `json:"draftNumber" validate:"gte=1"`
	TotalDrafts    int                `json:"totalDrafts" validate:"gte=1"`
	Content        string             `json:"content" validate:"required,maxbytes"`
	NeedsRevision  bool               `json:"needsRevision"`
	NextStepNeeded bool               `json:"nextStepNeeded"`
	IsRevision     bool               `json:"isRevision,omitempty"`
	RevisesDraft   *int               `json:"revisesDraft,omitempty" validate:"omitempty,gte=1"`
	IsCritique     bool               `json:"isCritique,omitempty"`
	CritiqueFocus  string             `json:"critiqueFocus,omitempty" validate:"omitempty,maxbytes"`
	ReasoningChain []string           `json:"reasoningChain,omitempty" validate:"omitempty,max=100,dive,maxbytes"`
	Category       *Category          `json:"category,omitempty"`
	Confidence     *float64           `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Context        *chain.StepContext `json:"context,omitempty"`
}

// Node is an accepted draft step with its category and confidence
// normalized. Target is the draft a critique or revision refers to.
type Node struct {
	Step
	Target   int `json:"target,omitempty"`
	Position int `json:"position"`
}

// Summary is the short form of a node echoed in result history.
type Summary struct {
	DraftNumber int          `json:"draftNumber"`
	Category    CategoryType `json:"category"`
	Confidence  float64      `json:"confidence"`
	Target      int          `json:"target,omitempty"`
	Superseded  bool         `json:"superseded,omitempty"`
	Content     string       `json:"content"`
}

// Efficiency summarizes the critique and revision cycle.
type Efficiency struct {
	CritiqueCount      int     `json:"critiqueCount"`
	RevisionCount      int     `json:"revisionCount"`
	DraftingEfficiency float64 `json:"draftingEfficiency"`
}

// Result is returned for every accepted step.
type Result struct {
	ChainID          string         `json:"chainId"`
	Node             Node           `json:"node"`
	Status           chain.Status   `json:"status"`
	TotalDrafts      int            `json:"totalDrafts"`
	Warnings         []*chain.Error `json:"warnings,omitempty"`
	Metrics          *chain.Metrics `json:"metrics,omitempty"`
	Efficiency       Efficiency     `json:"efficiency"`
	History          []Summary      `json:"history"`
	PendingRevisions []int          `json:"pendingRevisions,omitempty"`
}

// Snapshot is the read-only structural view of a draft chain.
type Snapshot struct {
	ChainID          string        `json:"chainId"`
	Status           chain.Status  `json:"status"`
	NodeCount        int           `json:"nodeCount"`
	TotalDrafts      int           `json:"totalDrafts"`
	PendingRevisions []int         `json:"pendingRevisions"`
	Efficiency       Efficiency    `json:"efficiency"`
	Metrics          chain.Metrics `json:"metrics"`
}
