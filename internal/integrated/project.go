package integrated

import (
	"errors"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
	"github.com/fyrsmithlabs/thinkd/internal/draft"
	"github.com/fyrsmithlabs/thinkd/internal/thought"
)

var thoughtCategories = map[string]thought.CategoryType{
	"analysis":     thought.CategoryAnalysis,
	"hypothesis":   thought.CategoryHypothesis,
	"verification": thought.CategoryVerification,
	"revision":     thought.CategoryRevision,
	"solution":     thought.CategorySolution,
	"initial":      thought.CategoryAnalysis,
	"critique":     thought.CategoryVerification,
	"final":        thought.CategorySolution,
}

var draftCategories = map[string]draft.CategoryType{
	"initial":      draft.CategoryInitial,
	"critique":     draft.CategoryCritique,
	"revision":     draft.CategoryRevision,
	"final":        draft.CategoryFinal,
	"analysis":     draft.CategoryInitial,
	"hypothesis":   draft.CategoryInitial,
	"verification": draft.CategoryCritique,
	"solution":     draft.CategoryFinal,
}

// thoughtStep projects the request onto the sequential engine. Critique
// fields have no thought counterpart and are dropped, as is revisesStep
// when it only names a critique target.
func (r Request) thoughtStep() thought.Step {
	s := thought.Step{
		ThoughtNumber:     r.StepNumber,
		TotalThoughts:     r.TotalSteps,
		Content:           r.Content,
		NextThoughtNeeded: r.NextStepNeeded,
		NeedsMoreThoughts: r.NeedsMoreSteps,
		BranchID:          r.BranchID,
		BranchFromThought: r.BranchFromStep,
		IsRevision:        r.IsRevision,
		Confidence:        r.Confidence,
		Context:           r.Context,
	}
	if r.IsRevision {
		s.RevisesThought = r.RevisesStep
	}
	if r.Category != nil {
		s.Category = &thought.Category{Type: thoughtCategories[r.Category.Type], Confidence: r.Category.Confidence}
	}
	return s
}

// draftStep projects the request onto the draft engine. Branch fields have
// no draft counterpart and are dropped.
func (r Request) draftStep() draft.Step {
	s := draft.Step{
		DraftNumber:    r.StepNumber,
		TotalDrafts:    r.TotalSteps,
		Content:        r.Content,
		NeedsRevision:  r.NeedsRevision,
		NextStepNeeded: r.NextStepNeeded,
		IsRevision:     r.IsRevision,
		IsCritique:     r.IsCritique,
		CritiqueFocus:  r.CritiqueFocus,
		ReasoningChain: r.ReasoningChain,
		Confidence:     r.Confidence,
		Context:        r.Context,
	}
	if r.IsRevision || r.IsCritique {
		s.RevisesDraft = r.RevisesStep
	}
	if r.Category != nil {
		s.Category = &draft.Category{Type: draftCategories[r.Category.Type], Confidence: r.Category.Confidence}
	}
	return s
}

// requestFields maps engine field names back to the request fields they
// were projected from.
var requestFields = map[string]string{
	"thoughtNumber":     "stepNumber",
	"draftNumber":       "stepNumber",
	"totalThoughts":     "totalSteps",
	"totalDrafts":       "totalSteps",
	"revisesThought":    "revisesStep",
	"revisesDraft":      "revisesStep",
	"branchFromThought": "branchFromStep",
	"nextThoughtNeeded": "nextStepNeeded",
	"needsMoreThoughts": "needsMoreSteps",
}

// inRequestTerms returns a copy of an engine rejection whose Fields name
// request fields. Errors that are not *chain.Error pass through.
func inRequestTerms(err error) error {
	var ce *chain.Error
	if !errors.As(err, &ce) {
		return err
	}
	out := *ce
	out.Fields = nil
	seen := make(map[string]struct{}, len(ce.Fields))
	for _, f := range ce.Fields {
		if mapped, ok := requestFields[f]; ok {
			f = mapped
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out.Fields = append(out.Fields, f)
	}
	return &out
}
