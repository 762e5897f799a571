package chain

// Status represents the lifecycle state of a chain.
type Status string

const (
	StatusEmpty      Status = "empty"
	StatusInProgress Status = "in_progress"
	StatusBranching  Status = "branching"
	StatusRevising   Status = "revising"
	StatusCompleted  Status = "completed"
)

// ValidTransitions defines allowed state transitions.
// Branching and revising may interleave freely before completion.
var ValidTransitions = map[Status][]Status{
	StatusEmpty:      {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusInProgress, StatusBranching, StatusRevising, StatusCompleted},
	StatusBranching:  {StatusInProgress, StatusBranching, StatusRevising, StatusCompleted},
	StatusRevising:   {StatusInProgress, StatusBranching, StatusRevising, StatusCompleted},
	StatusCompleted:  {}, // terminal
}

// CanTransitionTo checks if a transition from current status to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// NextStatus returns the state a chain moves to after accepting a step.
func NextStatus(branching, revising, done bool) Status {
	switch {
	case done:
		return StatusCompleted
	case revising:
		return StatusRevising
	case branching:
		return StatusBranching
	default:
		return StatusInProgress
	}
}
