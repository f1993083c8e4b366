package session

import "errors"

var (
	ErrNoActiveGame   = errors.New("no active game")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrIllegalMove    = errors.New("illegal move")
	ErrGameInProgress = errors.New("game in progress")
	ErrAlreadyStarted = errors.New("session already started")
	ErrSessionEnded   = errors.New("session ended")
)
