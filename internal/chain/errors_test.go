package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "structural with fields",
			err:      NewStructuralError(CodeInvalidField, "thoughtNumber must be >= 1", "thoughtNumber"),
			contains: []string{"CHAIN001", "structural", "thoughtNumber must be >= 1", "[fields: thoughtNumber]"},
		},
		{
			name:     "revision with reference",
			err:      NewRevisionError(CodeRevisionTargetMissing, 7, "revisesThought references unknown thought 7", "revisesThought"),
			contains: []string{"CHAIN011", "revision", "unknown thought 7"},
		},
		{
			name:     "internal with cause",
			err:      NewInternalError(errors.New("boom")),
			contains: []string{"CHAIN099", "internal failure", "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewBranchError(CodeBranchDisabled, 2, "branching is disabled"))

	assert.True(t, errors.Is(err, ErrBranch))
	assert.False(t, errors.Is(err, ErrRevision))
	assert.Equal(t, KindBranch, KindOf(err))
}

func TestCompositionError_CarriesCause(t *testing.T) {
	cause := NewRevisionError(CodeRevisionLowConfidence, 3, "too low", "confidence")
	err := NewCompositionError("sequential", cause)

	assert.True(t, errors.Is(err, ErrComposition))
	assert.True(t, errors.Is(err, ErrRevision), "cause kind should be reachable through Unwrap")
	assert.Equal(t, []string{"confidence"}, err.Fields)
	assert.Equal(t, 3, err.Ref)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindComposition, ce.Kind)
}

func TestError_Fatal(t *testing.T) {
	assert.False(t, NewConfidenceError(1, 0.4, 0.1, 0.2).Fatal())
	assert.True(t, NewChainClosedError("c1").Fatal())
	assert.True(t, NewStructuralError(CodeInvalidField, "x").Fatal())
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}
