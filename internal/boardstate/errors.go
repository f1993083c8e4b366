package boardstate

import (
	"errors"
	"fmt"
)

// ErrSnapshotTerminal is returned when an event arrives after the game ended
// or after the snapshot was invalidated.
var ErrSnapshotTerminal = errors.New("snapshot is terminal")

// IdentityMismatchError means neither side of a gameFull is the session user.
type IdentityMismatchError struct {
	GameID  string
	Self    string
	WhiteID string
	BlackID string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("game %s: self %q is neither white %q nor black %q", e.GameID, e.Self, e.WhiteID, e.BlackID)
}

// OutOfOrderStateError means a gameState carried fewer moves than already seen.
type OutOfOrderStateError struct {
	Have     int
	Received int
}

func (e *OutOfOrderStateError) Error() string {
	return fmt.Sprintf("out of order game state: have %d moves, received %d", e.Have, e.Received)
}
