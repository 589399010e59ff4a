// Package fault defines the structured error taxonomy shared by the engine.
package fault

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error classification.
type Kind string

const (
	// KindUnknown classifies errors that carry no fault kind.
	KindUnknown Kind = "unknown"
	// KindValidation indicates malformed caller input.
	KindValidation Kind = "validation"
	// KindAuthorization indicates the caller lacks ownership or role.
	KindAuthorization Kind = "authorization"
	// KindInvalidState indicates the operation is not legal in the entity's
	// current lifecycle state.
	KindInvalidState Kind = "invalid_state"
	// KindImmutablePaper indicates a mutation attempt on a paper in a
	// terminal state. Classified as an invalid-state fault.
	KindImmutablePaper Kind = "immutable_paper"
	// KindImmutableReview indicates a mutation attempt on a completed or
	// withdrawn review. Classified as an invalid-state fault.
	KindImmutableReview Kind = "immutable_review"
	// KindAlreadyAssigned indicates a duplicate reviewer assignment for the
	// same paper and cycle.
	KindAlreadyAssigned Kind = "already_assigned"
	// KindAlreadySubmitted indicates a repeated submit of a completed review.
	KindAlreadySubmitted Kind = "already_submitted"
	// KindDuplicateCitation indicates a citation sharing a DOI or arXiv id
	// with an existing one.
	KindDuplicateCitation Kind = "duplicate_citation"
	// KindDuplicateLink indicates a citation-paper link that already exists.
	KindDuplicateLink Kind = "duplicate_link"
	// KindNotFound indicates a referenced entity is absent.
	KindNotFound Kind = "not_found"
	// KindConflict indicates an optimistic-concurrency version mismatch; the
	// caller should re-fetch and retry.
	KindConflict Kind = "conflict"
)

// Error is a classified engine error. It carries a stable kind for callers
// and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, preserving it as the cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the fault kind from an error chain.
// Returns KindUnknown for nil or unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// invalidStateKinds are the kinds that specialize KindInvalidState.
var invalidStateKinds = map[Kind]bool{
	KindInvalidState:     true,
	KindImmutablePaper:   true,
	KindImmutableReview:  true,
	KindAlreadySubmitted: true,
}

// IsInvalidState reports whether the error is an invalid-state fault,
// including the immutable-entity specializations.
func IsInvalidState(err error) bool {
	return invalidStateKinds[KindOf(err)]
}

// IsConflict reports whether the error is any conflict-class fault: the
// caller should re-fetch current state and decide how to proceed.
func IsConflict(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindAlreadyAssigned, KindDuplicateCitation, KindDuplicateLink:
		return true
	}
	return false
}
