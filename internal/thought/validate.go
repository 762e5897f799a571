package thought

import (
	"fmt"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
)

// checkStructure enforces numbering and flag consistency.
func (e *Engine) checkStructure(step *Step) error {
	n := step.ThoughtNumber
	if n > step.TotalThoughts && !step.NeedsMoreThoughts {
		return chain.NewStructuralError(chain.CodeNumberOutOfRange,
			fmt.Sprintf("thoughtNumber %d exceeds totalThoughts %d; set needsMoreThoughts to extend the chain", n, step.TotalThoughts),
			"thoughtNumber", "totalThoughts")
	}
	if step.RevisesThought != nil && !step.IsRevision {
		return chain.NewStructuralError(chain.CodeInconsistentFlag,
			"revisesThought is only valid when isRevision is set",
			"revisesThought", "isRevision")
	}
	if step.BranchFromThought != nil && step.BranchID == "" {
		return chain.NewStructuralError(chain.CodeInconsistentFlag,
			"branchFromThought requires branchId",
			"branchFromThought", "branchId")
	}
	if step.IsRevision && step.BranchFromThought != nil {
		return chain.NewStructuralError(chain.CodeInconsistentFlag,
			"a step cannot revise a thought and open a branch at once",
			"isRevision", "branchFromThought")
	}
	if e.arena.Has(n) {
		reusesTarget := step.IsRevision && step.RevisesThought != nil && *step.RevisesThought == n
		if !reusesTarget {
			return chain.NewStructuralError(chain.CodeDuplicateNumber,
				fmt.Sprintf("thought %d already exists; only a revision of thought %d may reuse its number", n, n),
				"thoughtNumber")
		}
	}
	return nil
}

// checkRevision returns the arena position of the revised node, or -1 when
// the step is not a revision.
func (e *Engine) checkRevision(step *Step, confidence float64) (int, error) {
	if !step.IsRevision {
		return -1, nil
	}
	if !e.cfg.RevisionEnabled {
		return -1, chain.NewRevisionError(chain.CodeRevisionDisabled, 0,
			"revisions are disabled for this chain", "isRevision")
	}
	if step.RevisesThought == nil {
		return -1, chain.NewRevisionError(chain.CodeRevisionTargetUnset, 0,
			"isRevision requires revisesThought", "revisesThought")
	}
	target := *step.RevisesThought
	pos, ok := e.arena.Lookup(target)
	if !ok {
		return -1, chain.NewRevisionError(chain.CodeRevisionTargetMissing, target,
			fmt.Sprintf("thought %d does not exist", target), "revisesThought")
	}
	if confidence < e.cfg.MinRevisionConfidence {
		return -1, chain.NewRevisionError(chain.CodeRevisionLowConfidence, target,
			fmt.Sprintf("revision confidence %.2f is below the required %.2f", confidence, e.cfg.MinRevisionConfidence),
			"confidence")
	}
	return pos, nil
}

// checkBranch resolves the line a step lands on. It returns a non-nil branch
// only when the step opens a new one.
func (e *Engine) checkBranch(step *Step, revised int) (string, int, *branch, error) {
	if step.BranchID == "" {
		if revised >= 0 {
			target := e.arena.At(revised)
			return target.Line, target.Depth, nil, nil
		}
		return MainLine, 0, nil, nil
	}

	if !e.cfg.BranchingEnabled {
		return "", 0, nil, chain.NewBranchError(chain.CodeBranchDisabled, 0,
			"branching is disabled for this chain", "branchId")
	}
	if step.BranchID == MainLine {
		return "", 0, nil, chain.NewBranchError(chain.CodeBranchConflict, 0,
			fmt.Sprintf("branchId %q is reserved", MainLine), "branchId")
	}

	existing, known := e.branches[step.BranchID]
	if step.BranchFromThought == nil {
		if !known {
			return "", 0, nil, chain.NewBranchError(chain.CodeBranchUnknown, 0,
				fmt.Sprintf("branch %q does not exist; set branchFromThought to open it", step.BranchID),
				"branchId", "branchFromThought")
		}
		return existing.id, existing.depth, nil, nil
	}

	from := *step.BranchFromThought
	if known {
		if existing.from != from {
			return "", 0, nil, chain.NewBranchError(chain.CodeBranchConflict, from,
				fmt.Sprintf("branch %q was opened from thought %d", step.BranchID, existing.from),
				"branchId", "branchFromThought")
		}
		return existing.id, existing.depth, nil, nil
	}

	pos, ok := e.arena.Lookup(from)
	if !ok {
		return "", 0, nil, chain.NewBranchError(chain.CodeBranchOriginMissing, from,
			fmt.Sprintf("thought %d does not exist", from), "branchFromThought")
	}
	depth := e.arena.At(pos).Depth + 1
	if depth > e.cfg.MaxDepth {
		return "", 0, nil, chain.NewBranchError(chain.CodeBranchDepthExceeded, from,
			fmt.Sprintf("branch depth %d exceeds the maximum of %d", depth, e.cfg.MaxDepth),
			"branchFromThought")
	}
	return step.BranchID, depth, &branch{id: step.BranchID, from: from, depth: depth}, nil
}

// checkConfidence flags a main-line continuation whose confidence drops
// below the last main-line thought by more than the configured tolerance.
// The finding is advisory and never blocks the step.
func (e *Engine) checkConfidence(node Node, confidence float64) []*chain.Error {
	if node.IsRevision || node.Line != MainLine || len(e.mainLine) == 0 {
		return nil
	}
	switch node.Category.Type {
	case CategoryRevision, CategoryHypothesis:
		return nil
	}
	prev := e.arena.At(e.arena.Effective(e.mainLine[len(e.mainLine)-1]))
	previous := *prev.Confidence
	if !chain.Regressed(previous, confidence, e.cfg.MinConfidenceGrowth) {
		return nil
	}
	return []*chain.Error{chain.NewConfidenceError(prev.ThoughtNumber, previous, confidence, e.cfg.MinConfidenceGrowth)}
}

func inferCategory(step Step) CategoryType {
	switch {
	case step.IsRevision:
		return CategoryRevision
	case !step.NextThoughtNeeded:
		return CategorySolution
	case step.BranchID != "":
		return CategoryHypothesis
	default:
		return CategoryAnalysis
	}
}

// normalize fills the category and confidence and detaches the step from
// caller-owned memory.
func normalize(step Step, confidence float64) Step {
	category := Category{Type: inferCategory(step), Confidence: confidence}
	if step.Category != nil {
		category.Type = step.Category.Type
	}
	step.Category = &category
	step.Confidence = &confidence
	if step.BranchFromThought != nil {
		v := *step.BranchFromThought
		step.BranchFromThought = &v
	}
	if step.RevisesThought != nil {
		v := *step.RevisesThought
		step.RevisesThought = &v
	}
	step.Context = step.Context.Clone()
	return step
}
