package integrated

import (
	"github.com/fyrsmithlabs/thinkd/internal/draft"
	"github.com/fyrsmithlabs/thinkd/internal/thought"
)

// fuse reconciles the two sub-results. A concluding sub-result makes the
// fused type final; otherwise the more confident side wins and ties go to
// the sequential result.
func fuse(t thought.Node, d draft.Node) FusedCategory {
	tc, dc := t.Category.Confidence, d.Category.Confidence

	tFinal := t.Category.Type == thought.CategorySolution
	dFinal := d.Category.Type == draft.CategoryFinal
	if tFinal || dFinal {
		source := SourceBoth
		switch {
		case tFinal && !dFinal:
			source = SourceSequential
		case dFinal && !tFinal:
			source = SourceDraft
		}
		return FusedCategory{Type: FinalCategory, Confidence: max(tc, dc), Source: source}
	}

	if dc > tc {
		return FusedCategory{Type: string(d.Category.Type), Confidence: dc, Source: SourceDraft}
	}
	return FusedCategory{Type: string(t.Category.Type), Confidence: tc, Source: SourceSequential}
}

// blend averages the fused confidence with every available auxiliary score.
func blend(confidence float64, scores map[string]float64) float64 {
	if len(scores) == 0 {
		return confidence
	}
	sum := confidence
	for _, s := range scores {
		sum += s
	}
	return clamp(sum / float64(len(scores)+1))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
