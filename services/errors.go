package services

import "errors"

// Sentinel errors returned by the claim paths. Handlers map these onto 404
// and 409 responses; anything else is a server fault.
var (
	ErrObjectiveNotFound = errors.New("objective not found")
	ErrSetNotFound       = errors.New("objective set not found")
	ErrNotCompletedYet   = errors.New("objective not completed yet")
	ErrSetNotCompleted   = errors.New("objective set not completed yet")
	ErrAlreadyClaimed    = errors.New("reward already claimed")
)
