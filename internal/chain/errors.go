package chain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine error.
type Kind string

const (
	KindStructural  Kind = "structural"
	KindRevision    Kind = "revision"
	KindBranch      Kind = "branch"
	KindConfidence  Kind = "confidence"
	KindChainClosed Kind = "chain_closed"
	KindComposition Kind = "composition"
	KindInternal    Kind = "internal"
)

// Kind sentinels, matched by errors.Is against any *Error of that kind.
var (
	ErrStructural  = errors.New("structural error")
	ErrRevision    = errors.New("revision error")
	ErrBranch      = errors.New("branch error")
	ErrConfidence  = errors.New("confidence error")
	ErrChainClosed = errors.New("chain closed")
	ErrComposition = errors.New("composition error")
	ErrInternal    = errors.New("internal error")
)

// Structural error codes.
const (
	CodeInvalidField     = "CHAIN001"
	CodeNumberOutOfRange = "CHAIN002"
	CodeDuplicateNumber  = "CHAIN003"
	CodeInconsistentFlag = "CHAIN004"
)

// Revision error codes.
const (
	CodeRevisionDisabled      = "CHAIN010"
	CodeRevisionTargetMissing = "CHAIN011"
	CodeRevisionLowConfidence = "CHAIN012"
	CodeRevisionTargetUnset   = "CHAIN013"
)

// Branch error codes.
const (
	CodeBranchDisabled      = "CHAIN020"
	CodeBranchOriginMissing = "CHAIN021"
	CodeBranchDepthExceeded = "CHAIN022"
	CodeBranchConflict      = "CHAIN023"
	CodeBranchUnknown       = "CHAIN024"
)

// Remaining codes.
const (
	CodeConfidenceRegression = "CHAIN030"
	CodeChainClosed          = "CHAIN040"
	CodeComposition          = "CHAIN050"
	CodeInternal             = "CHAIN099"
)

// Error is a coded engine error. Fields names the offending JSON fields and
// Ref the node number the step referenced, when there is one.
type Error struct {
	Kind    Kind     `json:"kind"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Ref     int      `json:"ref,omitempty"`
	Cause   error    `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(" ")
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" [fields: ")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

// Fatal reports whether the error rejects the step.
// Only confidence errors are advisory.
func (e *Error) Fatal() bool {
	return e.Kind != KindConfidence
}

func sentinel(k Kind) error {
	switch k {
	case KindStructural:
		return ErrStructural
	case KindRevision:
		return ErrRevision
	case KindBranch:
		return ErrBranch
	case KindConfidence:
		return ErrConfidence
	case KindChainClosed:
		return ErrChainClosed
	case KindComposition:
		return ErrComposition
	default:
		return ErrInternal
	}
}

// NewStructuralError reports a malformed or inconsistent step.
func NewStructuralError(code, message string, fields ...string) *Error {
	return &Error{Kind: KindStructural, Code: code, Message: message, Fields: fields}
}

// NewRevisionError reports a revision that cannot be applied.
func NewRevisionError(code string, ref int, message string, fields ...string) *Error {
	return &Error{Kind: KindRevision, Code: code, Message: message, Fields: fields, Ref: ref}
}

// NewBranchError reports a branch that cannot be opened or continued.
func NewBranchError(code string, ref int, message string, fields ...string) *Error {
	return &Error{Kind: KindBranch, Code: code, Message: message, Fields: fields, Ref: ref}
}

// NewConfidenceError reports a confidence regression against the step ref.
func NewConfidenceError(ref int, previous, current, tolerance float64) *Error {
	return &Error{
		Kind:    KindConfidence,
		Code:    CodeConfidenceRegression,
		Message: fmt.Sprintf("confidence dropped from %.2f to %.2f, more than the tolerated %.2f", previous, current, tolerance),
		Fields:  []string{"confidence"},
		Ref:     ref,
	}
}

// NewChainClosedError reports a submission to a completed chain.
func NewChainClosedError(chainID string) *Error {
	return &Error{
		Kind:    KindChainClosed,
		Code:    CodeChainClosed,
		Message: fmt.Sprintf("chain %s is completed and accepts no further steps", chainID),
	}
}

// NewCompositionError wraps a sub-engine rejection on the integrated path.
// The cause's fields and reference are carried over so callers can correct
// the step without unwrapping.
func NewCompositionError(engine string, cause error) *Error {
	e := &Error{
		Kind:    KindComposition,
		Code:    CodeComposition,
		Message: fmt.Sprintf("%s engine rejected the step", engine),
		Cause:   cause,
	}
	var ce *Error
	if errors.As(cause, &ce) {
		e.Fields = ce.Fields
		e.Ref = ce.Ref
	}
	return e
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal failure", Cause: cause}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
