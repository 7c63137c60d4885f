package wintail

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by this package.
var (
	// ErrOffsetNotFound is returned by a PositionStore when a source
	// has never been polled. It is not a failure.
	ErrOffsetNotFound = errors.New("offset not found")

	// ErrUnknownSource is returned when a source ID cannot be resolved
	// to a location.
	ErrUnknownSource = errors.New("unknown source")

	// ErrPollFailed matches every error returned by Tailer.Poll.
	ErrPollFailed = errors.New("poll failed")
)

// UnavailableError reports that the upstream log could not be reached,
// answered with an unexpected status, or did not declare a length.
type UnavailableError struct {
	Source string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("source %s unavailable: status %d", e.Source, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source %s unavailable", e.Source)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// RangeError reports that the upstream rejected a byte range request,
// typically because the log shrank below the stored offset.
type RangeError struct {
	Source string
	From   int64
	To     int64
	Status int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("source %s rejected range [%d,%d): status %d", e.Source, e.From, e.To, e.Status)
}

// PollError is the single failure type surfaced by Tailer.Poll.
// It matches ErrPollFailed and unwraps to the underlying cause.
type PollError struct {
	SourceID string
	Op       string
	Err      error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s: %s: %v", e.SourceID, e.Op, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPollFailed.
func (e *PollError) Is(target error) bool {
	return target == ErrPollFailed
}

// StaleOffset reports whether err was caused by the upstream rejecting
// the stored offset.
func StaleOffset(err error) bool {
	var re *RangeError
	return errors.As(err, &re)
}
