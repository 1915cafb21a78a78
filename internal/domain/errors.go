package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job definition row does not exist
	ErrJobNotFound = errors.New("job not found")

	// ErrUnknownJob is returned for job ids missing from the static job table
	ErrUnknownJob = errors.New("unknown job")

	// ErrSnapshotNotFound is returned when no snapshot exists for a widget key and scope
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrInsightNotFound is returned when a panel has no insight yet
	ErrInsightNotFound = errors.New("insight not found")

	// ErrRunNotFound is returned when a run id does not exist
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidPayload is returned when a trigger message body is malformed
	ErrInvalidPayload = errors.New("invalid trigger payload")
)

// InvalidScheduleError is returned when a cron expression or timezone cannot build a trigger
type InvalidScheduleError struct {
	Err error
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid cron/timezone: %v", e.Err)
}

func (e *InvalidScheduleError) Unwrap() error {
	return e.Err
}

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
