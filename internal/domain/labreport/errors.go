package labreport

import "errors"

var (
	// ErrInvalidRequest is returned for malformed mutation input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidTransition is returned when the status policy rejects a change.
	ErrInvalidTransition = errors.New("invalid status transition")
)
