package bgg

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote board-game database operations.
var (
	ErrNotFound    = errors.New("bgg: not found")
	ErrRateLimited = errors.New("bgg: rate limited by server")
	ErrQueued      = errors.New("bgg: request queued, try again later")
	ErrBadRequest  = errors.New("bgg: bad request")
	ErrServer      = errors.New("bgg: server error")
	ErrParse       = errors.New("bgg: unexpected response shape")
)

var errMissingIDs = errors.New("item without objectid or collid")

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // collection, details, thing, video
	ID  string // username or object id
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bgg %s [%s]: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, id string, err error) error {
	return &Error{Op: op, ID: id, Err: err}
}

// parseError marks a decoding failure so callers can tell it from transport errors.
func parseError(err error) error {
	return fmt.Errorf("%w: %v", ErrParse, err)
}
