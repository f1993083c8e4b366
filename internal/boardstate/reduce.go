package boardstate

import (
	"strings"

	"github.com/park285/cheese-board-stream/internal/boardevent"
)

// Reduce folds one classified event into the next snapshot.
// It performs no I/O and never mutates prev. Events that do not describe game
// state (chat, unknown, gameStart) return prev unchanged with a nil error.
func Reduce(prev Snapshot, ev boardevent.Event, self string) (Snapshot, error) {
	switch e := ev.(type) {
	case boardevent.GameFull:
		if prev.Terminal() {
			return prev, ErrSnapshotTerminal
		}
		return reduceGameFull(prev, e, self)
	case boardevent.GameState:
		if prev.Terminal() {
			return prev, ErrSnapshotTerminal
		}
		return reduceGameState(prev, e)
	case boardevent.GameFinish:
		if prev.Terminal() {
			return prev, ErrSnapshotTerminal
		}
		return reduceGameFinish(prev, e), nil
	default:
		return prev, nil
	}
}

func reduceGameFull(prev Snapshot, e boardevent.GameFull, self string) (Snapshot, error) {
	me := normalizeID(self)
	whiteID, blackID := normalizeID(e.White.ID), normalizeID(e.Black.ID)

	var color Color
	switch {
	case me != "" && me == whiteID && me != blackID:
		color = White
	case me != "" && me == blackID && me != whiteID:
		color = Black
	default:
		return prev, &IdentityMismatchError{GameID: e.GameID, Self: self, WhiteID: e.White.ID, BlackID: e.Black.ID}
	}

	gameID := strings.TrimSpace(e.GameID)
	sameGame := gameID == "" || prev.GameID == "" || gameID == prev.GameID
	if gameID == "" {
		gameID = prev.GameID
	}

	base := Empty()
	if sameGame {
		base = prev
		// color is assigned once per game
		if prev.MyColor != NoColor {
			color = prev.MyColor
		}
	}

	moves := SplitMoves(e.Moves)
	if len(moves) < len(base.Moves) {
		moves = base.Moves
	}

	opponent := e.Black
	if color == Black {
		opponent = e.White
	}

	next := Snapshot{
		GameID:         gameID,
		MyColor:        color,
		OpponentName:   opponent.DisplayName(),
		OpponentRating: opponent.Rating,
		Status:         statusFromRemote(e.Status),
		Moves:          moves,
	}
	if next.Status == StatusCreated && len(moves) > 0 {
		next.Status = StatusStarted
	}
	next.IsMyTurn = SideToMove(len(moves)) == color
	next.LastOpponentMove = lastOpponentMove(color, moves)

	if next.Status == StatusFinished {
		next = finish(next, e.Status, "")
	}
	return next, nil
}

func reduceGameState(prev Snapshot, e boardevent.GameState) (Snapshot, error) {
	moves := SplitMoves(e.Moves)
	if len(moves) < len(prev.Moves) {
		return prev, &OutOfOrderStateError{Have: len(prev.Moves), Received: len(moves)}
	}

	next := prev
	next.Moves = moves
	next.LastOpponentMove = lastOpponentMove(prev.MyColor, moves)

	switch {
	case e.IsMyTurn != nil:
		next.IsMyTurn = *e.IsMyTurn
	case prev.MyColor != NoColor:
		next.IsMyTurn = SideToMove(len(moves)) == prev.MyColor
	default:
		next.IsMyTurn = false
	}

	if strings.TrimSpace(e.Status) != "" {
		next.Status = statusFromRemote(e.Status)
	}
	if next.Status == StatusCreated && len(moves) > 0 {
		next.Status = StatusStarted
	}
	if next.Status == StatusFinished {
		next = finish(next, e.Status, e.Winner)
	}
	return next, nil
}

func reduceGameFinish(prev Snapshot, e boardevent.GameFinish) Snapshot {
	if id := strings.TrimSpace(e.GameID); id != "" && prev.GameID != "" && id != prev.GameID {
		return prev
	}
	next := prev
	if next.GameID == "" {
		next.GameID = strings.TrimSpace(e.GameID)
	}
	return finish(next, e.Status, e.Winner)
}

func finish(s Snapshot, substatus, winner string) Snapshot {
	s.Status = StatusFinished
	s.IsMyTurn = false
	sub := strings.TrimSpace(substatus)
	if sub == "" {
		sub = "finished"
	}
	s.Substatus = sub
	if w := ParseColor(winner); w != NoColor {
		s.Winner = w
	}
	return s
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
