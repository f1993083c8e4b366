package boarddto

import "time"

// Snapshot is the wire form of a game snapshot, shared by the status API,
// the Redis mirror and the console presenter.
type Snapshot struct {
	SessionID        string    `json:"sessionId"`
	GameID           string    `json:"gameId"`
	MyColor          string    `json:"myColor,omitempty"`
	OpponentName     string    `json:"opponentName,omitempty"`
	OpponentRating   int       `json:"opponentRating,omitempty"`
	IsMyTurn         bool      `json:"isMyTurn"`
	Status           string    `json:"status"`
	Substatus        string    `json:"substatus,omitempty"`
	Winner           string    `json:"winner,omitempty"`
	MovesUCI         []string  `json:"movesUci"`
	MovesSAN         []string  `json:"movesSan,omitempty"`
	MoveCount        int       `json:"moveCount"`
	LastOpponentMove string    `json:"lastOpponentMove,omitempty"`
	FEN              string    `json:"fen,omitempty"`
	Invalid          bool      `json:"invalid,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Finished reports whether the snapshot describes an ended game.
func (s *Snapshot) Finished() bool {
	return s != nil && s.Status == "FINISHED"
}
