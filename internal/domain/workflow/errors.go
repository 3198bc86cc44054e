package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the requested (from, to) pair is
	// not permitted for the actor's role
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrMissingRequiredComment is returned when a reject/return transition
	// is requested without a non-empty comment
	ErrMissingRequiredComment = errors.New("transition requires a comment")

	// ErrClaimNotEditable is returned when an edit is attempted outside
	// RETURNED_TO_EMPLOYEE
	ErrClaimNotEditable = errors.New("claim is not editable")

	// ErrUnresolvedPolicy is returned when a category code has no active
	// matching policy category; evaluation degrades to warnings instead
	ErrUnresolvedPolicy = errors.New("no active policy category matches")
)
