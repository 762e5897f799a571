package chain

// StepContext is free-form scope information attached to a step.
type StepContext struct {
	ProblemScope string   `json:"problemScope,omitempty" validate:"omitempty,maxbytes"`
	Assumptions  []string `json:"assumptions,omitempty" validate:"omitempty,max=100,dive,maxbytes"`
	Constraints  []string `json:"constraints,omitempty" validate:"omitempty,max=100,dive,maxbytes"`
}

// Clone returns a deep copy of c. A nil receiver yields nil.
func (c *StepContext) Clone() *StepContext {
	if c == nil {
		return nil
	}
	return &StepContext{
		ProblemScope: c.ProblemScope,
		Assumptions:  append([]string(nil), c.Assumptions...),
		Constraints:  append([]string(nil), c.Constraints...),
	}
}

// Bytes returns the text payload size of c.
func (c *StepContext) Bytes() int {
	if c == nil {
		return 0
	}
	n := len(c.ProblemScope)
	for _, s := range c.Assumptions {
		n += len(s)
	}
	for _, s := range c.Constraints {
		n += len(s)
	}
	return n
}

// MergeContexts unions the given contexts, keeping the first non-empty problem
// scope and de-duplicating assumptions and constraints in order of appearance.
// Returns nil when every input is nil.
func MergeContexts(contexts ...*StepContext) *StepContext {
	var out *StepContext
	seenA := make(map[string]bool)
	seenC := make(map[string]bool)
	for _, c := range contexts {
		if c == nil {
			continue
		}
		if out == nil {
			out = &StepContext{}
		}
		if out.ProblemScope == "" {
			out.ProblemScope = c.ProblemScope
		}
		for _, a := range c.Assumptions {
			if !seenA[a] {
				seenA[a] = true
				out.Assumptions = append(out.Assumptions, a)
			}
		}
		for _, k := range c.Constraints {
			if !seenC[k] {
				seenC[k] = true
				out.Constraints = append(out.Constraints, k)
			}
		}
	}
	return out
}

// DefaultConfidence is used when a step carries neither an explicit nor a
// category confidence.
const DefaultConfidence = 0.5

// EffectiveConfidence picks the explicit confidence, then the category
// confidence, then DefaultConfidence.
func EffectiveConfidence(explicit *float64, category *float64) float64 {
	if explicit != nil {
		return *explicit
	}
	if category != nil {
		return *category
	}
	return DefaultConfidence
}

// Regressed reports whether current fell more than tolerance below previous.
func Regressed(previous, current, tolerance float64) bool {
	const epsilon = 1e-9
	return previous-current > tolerance+epsilon
}
