package models

import "errors"

// Sentinel errors shared across repositories and services. Callers match
// them with errors.Is; repositories wrap the underlying storage error.
var (
	// ErrNotFound is returned when a user, statistics row or badge record
	// is absent where one is required.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRole is returned when an evaluation is requested for a role
	// the badge catalog does not define.
	ErrInvalidRole = errors.New("invalid role")
)
