package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPeriod is returned for a month outside 1-12.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCollaboratorUnavailable marks a failed or timed-out store call.
	// Callers may retry.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// Unavailable wraps a collaborator failure. ErrNotFound is passed through
// unchanged since it is an answer, not a fault.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrCollaboratorUnavailable, err)
}
