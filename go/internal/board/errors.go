package board

import "errors"

var (
	// ErrNotFound is returned for unknown or inactive sessions and missing feedback items.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned for malformed session references, categories and content.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateVote is returned when a client votes for the same item twice.
	ErrDuplicateVote = errors.New("already voted for this item")
)
