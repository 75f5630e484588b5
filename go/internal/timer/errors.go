package timer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for a non-positive duration, session id or empty client token.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState is returned when resuming a paused timer with nothing left on it.
	ErrInvalidState = errors.New("invalid timer state")
	// ErrConflict matches any *ConflictError via errors.Is.
	ErrConflict = errors.New("timer conflict")
)

// ConflictError reports that the requesting client may not perform the
// transition. Holder is the current lease holder, empty when nobody holds it.
type ConflictError struct {
	Holder string
}

func (e *ConflictError) Error() string {
	if e.Holder == "" {
		return "timer conflict: no active timer for this client"
	}
	return fmt.Sprintf("timer conflict: controlled by %s", e.Holder)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
