package draft

import (
	"fmt"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
)

func (e *Engine) checkStructure(step *Step) error {
	n := step.DraftNumber
	annotates := step.IsRevision || step.IsCritique

	if n > step.TotalDrafts && !annotates {
		return chain.NewStructuralError(chain.CodeNumberOutOfRange,
			fmt.Sprintf("draftNumber %d exceeds totalDrafts %d", n, step.TotalDrafts),
			"draftNumber", "totalDrafts")
	}
	if step.IsRevision && step.IsCritique {
		return chain.NewStructuralError(chain.CodeInconsistentFlag,
			"a step is either a critique or a revision, not both",
			"isRevision", "isCritique")
	}
	if step.RevisesDraft != nil && !annotates {
		return chain.NewStructuralError(chain.CodeInconsistentFlag,
			"revisesDraft is only valid on a revision or critique",
			"revisesDraft", "isRevision")
	}
	if step.CritiqueFocus != "" && !step.IsCritique {
		return chain.NewStructuralError(chain.CodeInconsistentFlag,
			"critiqueFocus is only valid when isCritique is set",
			"critiqueFocus", "isCritique")
	}
	if e.arena.Has(n) && !e.reusesTarget(step) {
		return chain.NewStructuralError(chain.CodeDuplicateNumber,
			fmt.Sprintf("draft %d already exists; only a critique or revision of draft %d may reuse its number", n, n),
			"draftNumber")
	}
	return nil
}

// reusesTarget reports whether an annotation carries the number of the draft
// it addresses, either named by revisesDraft or, for a critique, implied as
// the newest draft.
func (e *Engine) reusesTarget(step *Step) bool {
	n := step.DraftNumber
	switch {
	case step.RevisesDraft != nil:
		return (step.IsRevision || step.IsCritique) && *step.RevisesDraft == n
	case step.IsCritique:
		return e.lastDraft >= 0 && e.arena.NumberAt(e.lastDraft) == n
	default:
		return false
	}
}

// lookupDraft returns the latest position of draft n, ignoring critiques.
func (e *Engine) lookupDraft(n int) (int, bool) {
	pos, ok := e.drafts[n]
	return pos, ok
}

// checkRevision returns the arena position of the revised draft, or -1 when
// the step is not a revision.
func (e *Engine) checkRevision(step *Step, confidence float64) (int, error) {
	if !step.IsRevision {
		return -1, nil
	}
	if !e.cfg.RevisionEnabled {
		return -1, chain.NewRevisionError(chain.CodeRevisionDisabled, 0,
			"revisions are disabled for this chain", "isRevision")
	}
	if step.RevisesDraft == nil {
		return -1, chain.NewRevisionError(chain.CodeRevisionTargetUnset, 0,
			"isRevision requires revisesDraft", "revisesDraft")
	}
	target := *step.RevisesDraft
	pos, ok := e.lookupDraft(target)
	if !ok {
		return -1, chain.NewRevisionError(chain.CodeRevisionTargetMissing, target,
			fmt.Sprintf("draft %d does not exist", target), "revisesDraft")
	}
	if confidence < e.cfg.MinRevisionConfidence {
		return -1, chain.NewRevisionError(chain.CodeRevisionLowConfidence, target,
			fmt.Sprintf("revision confidence %.2f is below the required %.2f", confidence, e.cfg.MinRevisionConfidence),
			"confidence")
	}
	return pos, nil
}

// checkCritique resolves the draft a critique comments on: the one named by
// revisesDraft, else the newest draft. It returns 0 for non-critique steps.
func (e *Engine) checkCritique(step *Step) (int, error) {
	if !step.IsCritique {
		return 0, nil
	}
	if step.RevisesDraft != nil {
		target := *step.RevisesDraft
		if _, ok := e.lookupDraft(target); !ok {
			return 0, chain.NewBranchError(chain.CodeBranchOriginMissing, target,
				fmt.Sprintf("draft %d does not exist", target), "revisesDraft")
		}
		return target, nil
	}
	if e.lastDraft < 0 {
		return 0, chain.NewBranchError(chain.CodeBranchOriginMissing, 0,
			"there is no draft to critique yet", "isCritique")
	}
	return e.arena.NumberAt(e.lastDraft), nil
}

// checkConfidence flags a plain draft whose confidence drops below the
// newest draft by more than the configured tolerance.
func (e *Engine) checkConfidence(node Node, confidence float64) []*chain.Error {
	if node.IsRevision || node.IsCritique || e.lastDraft < 0 {
		return nil
	}
	switch node.Category.Type {
	case CategoryRevision, CategoryCritique:
		return nil
	}
	prev := e.arena.At(e.arena.Effective(e.lastDraft))
	previous := *prev.Confidence
	if !chain.Regressed(previous, confidence, e.cfg.MinConfidenceGrowth) {
		return nil
	}
	return []*chain.Error{chain.NewConfidenceError(prev.DraftNumber, previous, confidence, e.cfg.MinConfidenceGrowth)}
}

func inferCategory(step Step) CategoryType {
	switch {
	case step.IsCritique:
		return CategoryCritique
	case step.IsRevision:
		return CategoryRevision
	case !step.NextStepNeeded:
		return CategoryFinal
	default:
		return CategoryInitial
	}
}

func normalize(step Step, confidence float64) Step {
	category := Category{Type: inferCategory(step), Confidence: confidence}
	if step.Category != nil {
		category.Type = step.Category.Type
	}
	step.Category = &category
	step.Confidence = &confidence
	if step.RevisesDraft != nil {
		v := *step.RevisesDraft
		step.RevisesDraft = &v
	}
	if step.ReasoningChain != nil {
		step.ReasoningChain = append([]string(nil), step.ReasoningChain...)
	}
	step.Context = step.Context.Clone()
	return step
}
