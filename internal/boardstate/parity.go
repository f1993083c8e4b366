package boardstate

// WhoMovedLast derives the side that made the last of moveCount half-moves.
// White always moves first, so an odd count means White moved last.
func WhoMovedLast(moveCount int) (Color, bool) {
	if moveCount <= 0 {
		return NoColor, false
	}
	if moveCount%2 == 1 {
		return White, true
	}
	return Black, true
}

// OpponentMovedLast reports whether the last of moveCount half-moves belongs
// to the side opposite myColor.
func OpponentMovedLast(myColor Color, moveCount int) bool {
	last, ok := WhoMovedLast(moveCount)
	if !ok || myColor == NoColor {
		return false
	}
	return last != myColor
}

// SideToMove is the color expected to play the next half-move.
func SideToMove(moveCount int) Color {
	if moveCount%2 == 0 {
		return White
	}
	return Black
}

// lastOpponentMove picks the most recent move made by the opponent of myColor.
func lastOpponentMove(myColor Color, moves []string) string {
	n := len(moves)
	if n == 0 || myColor == NoColor {
		return ""
	}
	if OpponentMovedLast(myColor, n) {
		return moves[n-1]
	}
	if n >= 2 {
		return moves[n-2]
	}
	return ""
}
