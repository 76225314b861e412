package review

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("review session not found")
	ErrItemNotFound    = errors.New("check not part of this review")
	ErrUnknownField    = errors.New("field is not editable")
	ErrSubmitInFlight  = errors.New("submission already in progress")
	ErrSessionClosed   = errors.New("batch already submitted from this review")
	ErrNotConfirming   = errors.New("no submission is awaiting confirmation")
	ErrContactSearch   = errors.New("contact search failed")
	ErrAmountRange     = errors.New("amount out of range")
	ErrForeignCheck    = errors.New("check belongs to another batch")
)

type FailureKind string

const (
	// KindLogical is a submission the processing service answered with success:false.
	KindLogical FailureKind = "logical_failure"
	// KindTransport is a submission that never produced a readable answer.
	KindTransport FailureKind = "transport_failure"
)

const (
	unknownErrorMessage = "Unknown error"
	networkErrorMessage = "Network error. Please try again."
)

// SubmitError describes a failed submission. Message is what the reviewer sees.
type SubmitError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
