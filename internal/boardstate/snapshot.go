package boardstate

import "strings"

// Color identifies a chess side.
type Color string

const (
	NoColor Color = ""
	White   Color = "white"
	Black   Color = "black"
)

// Opposite returns the other side; NoColor stays NoColor.
func (c Color) Opposite() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) Color {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White
	case "black", "b":
		return Black
	default:
		return NoColor
	}
}

// Status is the coarse lifecycle of a game.
type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusStarted  Status = "STARTED"
	StatusFinished Status = "FINISHED"
)

// Snapshot is the authoritative view of the active game.
// A Snapshot is a value: the reducer returns a fresh one for every accepted
// event and never mutates the Moves slice of a previous one.
type Snapshot struct {
	GameID           string
	MyColor          Color
	OpponentName     string
	OpponentRating   int
	IsMyTurn         bool
	Status           Status
	Substatus        string
	Winner           Color
	Moves            []string
	LastOpponentMove string
	// Invalid is set when the game could not be attributed to the session user.
	Invalid bool
}

// Empty is the placeholder held before any game event arrives.
func Empty() Snapshot {
	return Snapshot{Status: StatusCreated, Moves: []string{}}
}

// Terminal reports whether no further reduction applies.
func (s Snapshot) Terminal() bool {
	return s.Status == StatusFinished || s.Invalid
}

// MoveCount is the number of half-moves played.
func (s Snapshot) MoveCount() int { return len(s.Moves) }

// LastMove returns the most recent move token, if any.
func (s Snapshot) LastMove() string {
	if len(s.Moves) == 0 {
		return ""
	}
	return s.Moves[len(s.Moves)-1]
}

// Clone returns a copy that shares no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Moves = append([]string(nil), s.Moves...)
	if out.Moves == nil {
		out.Moves = []string{}
	}
	return out
}

// SplitMoves splits a space separated move list into tokens.
func SplitMoves(moves string) []string {
	fields := strings.Fields(moves)
	if fields == nil {
		return []string{}
	}
	return fields
}

var terminalStatuses = map[string]struct{}{
	"aborted":       {},
	"mate":          {},
	"resign":        {},
	"stalemate":     {},
	"timeout":       {},
	"draw":          {},
	"outoftime":     {},
	"cheat":         {},
	"nostart":       {},
	"unknownfinish": {},
	"variantend":    {},
}

// IsTerminalStatus reports whether a remote status string ends the game.
func IsTerminalStatus(status string) bool {
	_, ok := terminalStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

func statusFromRemote(status string) Status {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "" || s == "created":
		return StatusCreated
	case IsTerminalStatus(s):
		return StatusFinished
	default:
		return StatusStarted
	}
}

// Invalidated marks s unusable once the game is known not to belong to the user.
func (s Snapshot) Invalidated() Snapshot {
	out := s.Clone()
	out.Invalid = true
	out.IsMyTurn = false
	return out
}
