package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for lookups of unknown or reaped ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPlayerNotFound is returned when an action names a player that is
	// not a remote seat of the session.
	ErrPlayerNotFound = errors.New("player not found in session")
)

// InvalidTurnError rejects an action submitted for the wrong turn.
type InvalidTurnError struct {
	Expected int
	Got      int
}

func (e *InvalidTurnError) Error() string {
	return fmt.Sprintf("invalid turn: expected %d, got %d", e.Expected, e.Got)
}
