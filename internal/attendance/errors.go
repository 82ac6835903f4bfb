package attendance

import "errors"

var (
	// ErrAlreadyActive is returned by Start while a session is running.
	ErrAlreadyActive = errors.New("an attendance session is already active")
	// ErrNotActive is returned by Recognize, SubmitFrame and Stop when no session is running.
	ErrNotActive = errors.New("no active attendance session")
	// ErrUnknownStudent is returned when a referenced student does not exist.
	ErrUnknownStudent = errors.New("unknown student")
	// ErrInvalidPeriod is returned for periods that are not positive integers.
	ErrInvalidPeriod = errors.New("period must be a positive integer")
	// ErrClassRequired is returned by Start without a class name.
	ErrClassRequired = errors.New("class name is required")
)
