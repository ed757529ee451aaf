package domain

import "errors"

var (
	// ErrNotFound is returned when the requested mission does not exist.
	ErrNotFound = errors.New("mission not found")
	// ErrValidation marks empty or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrMissionClosed is returned when a single event targets a completed mission.
	ErrMissionClosed = errors.New("cannot append to completed mission")
	// ErrInternal marks unexpected persistence or parsing failures.
	ErrInternal = errors.New("internal error")
)
