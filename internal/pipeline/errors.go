package pipeline

import (
	"errors"
	"fmt"
)

// State is one step of a verification run
type State string

const (
	StateReadImage         State = "read_image"
	StateExtractClaims     State = "extract_claims"
	StateRetrieveEvidence  State = "retrieve_evidence"
	StateFilterEvidence    State = "filter_evidence"
	StateClassifyAndSelect State = "classify_and_select"
	StateScoreSource       State = "score_source"
	StateAggregate         State = "aggregate"
	StateBuildResult       State = "build_result"
)

// Causes of an InputFailure
var (
	ErrNoClaimsExtracted = errors.New("no claims extracted")
	ErrNoValidEvidence   = errors.New("no valid news sources found")
	ErrNoTextExtracted   = errors.New("no text extracted from image")
)

// InputFailure ends a run because the input cannot be verified: no claims,
// no usable evidence, or no text in an image. It is not retried.
type InputFailure struct {
	State State
	Err   error // One of the ErrNo* sentinels
	Cause error // Underlying collaborator error, if any
}

func (e *InputFailure) Error() string {
	return e.Err.Error()
}

func (e *InputFailure) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// UnexpectedFailure is any other terminal failure
type UnexpectedFailure struct {
	State State
	Err   error
}

func (e *UnexpectedFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *UnexpectedFailure) Unwrap() error {
	return e.Err
}

// IsInputFailure reports whether err is, or wraps, an InputFailure
func IsInputFailure(err error) bool {
	var f *InputFailure
	return errors.As(err, &f)
}

// IsUnexpectedFailure reports whether err is, or wraps, an UnexpectedFailure
func IsUnexpectedFailure(err error) bool {
	var f *UnexpectedFailure
	return errors.As(err, &f)
}

// Outcome labels err for metrics: ok, input_failure, cancelled or
// unexpected_failure
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsInputFailure(err):
		return "input_failure"
	case IsUnexpectedFailure(err):
		return "unexpected_failure"
	default:
		return "cancelled"
	}
}
