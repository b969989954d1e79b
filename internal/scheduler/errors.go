package scheduler

import "errors"

var (
	// ErrInvalidDeadline is returned when the target time is not strictly in the future
	ErrInvalidDeadline = errors.New("deadline must be in the future")

	// ErrNotFound is returned when a channel has no deadline
	ErrNotFound = errors.New("deadline not found")

	// ErrMessageGone is returned by a Messenger when the status message no longer exists
	ErrMessageGone = errors.New("status message gone")

	// ErrStorageFailure is returned when the deadline snapshot could not be written
	ErrStorageFailure = errors.New("deadline storage failure")
)
