package boardstate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-board-stream/internal/boardevent"
)

func gameFull(white, black, moves string) boardevent.GameFull {
	return boardevent.GameFull{
		GameID: "g1",
		White:  boardevent.Player{ID: white, Name: white, Rating: 1500},
		Black:  boardevent.Player{ID: black, Name: black, Rating: 1400},
		Status: "started",
		Moves:  moves,
	}
}

func mustReduce(t *testing.T, prev Snapshot, ev boardevent.Event) Snapshot {
	t.Helper()
	next, err := Reduce(prev, ev, "self")
	require.NoError(t, err)
	return next
}

func TestScenarioSelfAsBlack(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("bob", "self", ""))
	require.Equal(t, Black, s.MyColor)
	require.False(t, s.IsMyTurn)
	require.Empty(t, s.Moves)
	require.Equal(t, "bob", s.OpponentName)
	require.Equal(t, 1500, s.OpponentRating)

	s = mustReduce(t, s, boardevent.GameState{Moves: "e2e4", Status: "started"})
	require.True(t, s.IsMyTurn)
	require.Equal(t, "e2e4", s.LastOpponentMove)

	s = mustReduce(t, s, boardevent.GameState{Moves: "e2e4 e7e5", Status: "started"})
	require.False(t, s.IsMyTurn)
	require.Equal(t, []string{"e2e4", "e7e5"}, s.Moves)
}

func TestGameFullSelfAsWhiteMovesFirst(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("Self", "bob", ""))
	require.Equal(t, White, s.MyColor)
	require.True(t, s.IsMyTurn)
	require.Equal(t, "g1", s.GameID)
}

func TestGameFullIdentityMismatch(t *testing.T) {
	prev := Empty()
	next, err := Reduce(prev, gameFull("alice", "bob", ""), "self")
	var mismatch *IdentityMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	require.Equal(t, "alice", mismatch.WhiteID)
	require.Equal(t, prev, next)
}

func TestGameFullKeepsAssignedColorAndLongerMoves(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("bob", "self", ""))
	s = mustReduce(t, s, boardevent.GameState{Moves: "e2e4 e7e5 g1f3"})
	// a re-delivered gameFull after reconnect carries a stale, shorter list
	s = mustReduce(t, s, gameFull("bob", "self", "e2e4"))
	require.Equal(t, Black, s.MyColor)
	require.Equal(t, []string{"e2e4", "e7e5", "g1f3"}, s.Moves)
	require.True(t, s.IsMyTurn)
}

func TestGameFullOnReconnectDerivesTurnFromMoves(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", "e2e4"))
	require.False(t, s.IsMyTurn)
	require.Equal(t, StatusStarted, s.Status)
}

func TestOutOfOrderStateIsRejected(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("bob", "self", ""))
	s = mustReduce(t, s, boardevent.GameState{Moves: "e2e4 e7e5"})

	next, err := Reduce(s, boardevent.GameState{Moves: "e2e4"}, "self")
	var ooo *OutOfOrderStateError
	require.True(t, errors.As(err, &ooo), "got %v", err)
	require.Equal(t, 2, ooo.Have)
	require.Equal(t, 1, ooo.Received)
	require.Equal(t, s, next)
	require.Len(t, next.Moves, 2)
}

func TestMoveCountNeverDecreases(t *testing.T) {
	seq := []string{"e2e4", "e2e4 e7e5", "e2e4", "", "e2e4 e7e5 g1f3", "e2e4 e7e5", "e2e4 e7e5 g1f3 b8c6"}
	s := mustReduce(t, Empty(), gameFull("self", "bob", ""))
	count := 0
	for _, moves := range seq {
		next, err := Reduce(s, boardevent.GameState{Moves: moves}, "self")
		if err != nil {
			require.Equal(t, s, next)
		}
		require.GreaterOrEqual(t, next.MoveCount(), count)
		count = next.MoveCount()
		s = next
	}
	require.Equal(t, 4, s.MoveCount())
}

func TestTurnFlipsOnlyOnSingleAppend(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", ""))
	require.True(t, s.IsMyTurn)

	same := mustReduce(t, s, boardevent.GameState{Moves: ""})
	require.Equal(t, s.IsMyTurn, same.IsMyTurn)

	one := mustReduce(t, s, boardevent.GameState{Moves: "e2e4"})
	require.NotEqual(t, s.IsMyTurn, one.IsMyTurn)

	two := mustReduce(t, one, boardevent.GameState{Moves: "e2e4 e7e5 g1f3"})
	require.Equal(t, one.IsMyTurn, two.IsMyTurn)
}

func TestExplicitTurnHintWins(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", ""))
	hint := true
	s = mustReduce(t, s, boardevent.GameState{Moves: "e2e4", IsMyTurn: &hint})
	require.True(t, s.IsMyTurn)
}

func TestGameFinishIsTerminal(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", ""))
	s = mustReduce(t, s, boardevent.GameFinish{GameID: "g1", Status: "resign", Winner: "black"})
	require.Equal(t, StatusFinished, s.Status)
	require.Equal(t, "resign", s.Substatus)
	require.Equal(t, Black, s.Winner)
	require.False(t, s.IsMyTurn)
	require.True(t, s.Terminal())

	next, err := Reduce(s, boardevent.GameState{Moves: "e2e4"}, "self")
	require.ErrorIs(t, err, ErrSnapshotTerminal)
	require.Equal(t, s, next)
}

func TestTerminalGameStateFinishes(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", ""))
	s = mustReduce(t, s, boardevent.GameState{Moves: "f2f3 e7e5 g2g4 d8h4", Status: "mate", Winner: "black"})
	require.True(t, s.Terminal())
	require.Equal(t, "mate", s.Substatus)
	require.False(t, s.IsMyTurn)
	require.Len(t, s.Moves, 4)
}

func TestGameFinishForOtherGameIgnored(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", ""))
	next := mustReduce(t, s, boardevent.GameFinish{GameID: "other", Status: "resign"})
	require.Equal(t, s, next)
}

func TestSideChannelEventsPassThrough(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", "e2e4"))
	for _, ev := range []boardevent.Event{
		boardevent.ChatLine{Username: "bob", Text: "hi"},
		boardevent.Unknown{Type: "opponentGone"},
		boardevent.GameStart{GameID: "g1"},
	} {
		require.Equal(t, s, mustReduce(t, s, ev))
	}
}

func TestReduceDoesNotAliasPreviousMoves(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", "e2e4 e7e5"))
	before := append([]string(nil), s.Moves...)
	_ = mustReduce(t, s, boardevent.GameState{Moves: "e2e4 e7e5 g1f3"})
	require.Equal(t, before, s.Moves)
}

func TestInvalidatedSnapshotRejectsEvents(t *testing.T) {
	s := mustReduce(t, Empty(), gameFull("self", "bob", "")).Invalidated()
	_, err := Reduce(s, boardevent.GameState{Moves: "e2e4"}, "self")
	require.ErrorIs(t, err, ErrSnapshotTerminal)
}
