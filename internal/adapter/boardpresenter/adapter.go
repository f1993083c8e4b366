package boardpresenter

import (
	"errors"
	"time"

	"github.com/park285/cheese-board-stream/internal/board"
	"github.com/park285/cheese-board-stream/internal/boardevent"
	"github.com/park285/cheese-board-stream/internal/boardstate"
	"github.com/park285/cheese-board-stream/internal/lichessfast"
	"github.com/park285/cheese-board-stream/internal/session"
	"github.com/park285/cheese-board-stream/pkg/boarddto"
)

// ToDTOSnapshot converts a snapshot; SAN and FEN are filled when the move
// list replays locally.
func ToDTOSnapshot(sessionID string, s boardstate.Snapshot, now time.Time) *boarddto.Snapshot {
	dto := &boarddto.Snapshot{
		SessionID:        sessionID,
		GameID:           s.GameID,
		MyColor:          string(s.MyColor),
		OpponentName:     s.OpponentName,
		OpponentRating:   s.OpponentRating,
		IsMyTurn:         s.IsMyTurn,
		Status:           string(s.Status),
		Substatus:        s.Substatus,
		Winner:           string(s.Winner),
		MovesUCI:         append([]string{}, s.Moves...),
		MoveCount:        s.MoveCount(),
		LastOpponentMove: s.LastOpponentMove,
		Invalid:          s.Invalid,
		UpdatedAt:        now.UTC(),
	}
	if pos, err := board.Reconstruct(s.Moves); err == nil {
		dto.MovesSAN = pos.SAN
		dto.FEN = pos.FEN
	}
	return dto
}

func ToDTOChannels(c session.ChannelStates) boarddto.ChannelStates {
	return boarddto.ChannelStates{Events: c.Events.String(), Game: c.Game.String()}
}

func ToDTOHealth(v session.View) boarddto.Health {
	h := boarddto.Health{
		Status:    "ok",
		SessionID: v.SessionID,
		Channels:  ToDTOChannels(session.ChannelStates{Events: v.Events, Game: v.Game}),
		Ended:     v.Ended,
	}
	if v.Failure != nil {
		h.Status = "failed"
		h.Failure = v.Failure.Error()
	}
	return h
}

func ToDTONotice(ev boardevent.Event) boarddto.Notice {
	switch e := ev.(type) {
	case boardevent.GameStart:
		return boarddto.Notice{Kind: string(e.Kind()), GameID: e.GameID, Username: e.OpponentName}
	case boardevent.ChatLine:
		return boarddto.Notice{Kind: string(e.Kind()), Username: e.Username, Text: e.Text, Room: e.Room}
	case boardevent.GameFinish:
		return boarddto.Notice{Kind: string(e.Kind()), GameID: e.GameID, Text: e.Status}
	case boardevent.Unknown:
		kind := e.Type
		if kind == "" {
			kind = "untyped"
		}
		return boarddto.Notice{Kind: kind, Raw: e.Raw}
	default:
		return boarddto.Notice{Kind: string(ev.Kind())}
	}
}

// ToDTOError maps session and command errors to stable codes.
func ToDTOError(err error) boarddto.DomainError {
	var cmdErr *lichessfast.CommandError
	switch {
	case err == nil:
		return boarddto.DomainError{}
	case errors.Is(err, session.ErrNotYourTurn):
		return boarddto.DomainError{Code: "not_your_turn", Message: err.Error()}
	case errors.Is(err, session.ErrNoActiveGame):
		return boarddto.DomainError{Code: "no_active_game", Message: err.Error()}
	case errors.Is(err, session.ErrIllegalMove), errors.Is(err, board.ErrIllegalMove):
		return boarddto.DomainError{Code: "illegal_move", Message: err.Error()}
	case errors.Is(err, session.ErrGameInProgress):
		return boarddto.DomainError{Code: "game_in_progress", Message: err.Error()}
	case errors.Is(err, session.ErrSessionEnded):
		return boarddto.DomainError{Code: "session_ended", Message: err.Error()}
	case errors.As(err, &cmdErr):
		return boarddto.DomainError{Code: "command_failed", Message: cmdErr.Error(), Retryable: cmdErr.Status >= 500}
	default:
		return boarddto.DomainError{Code: "internal", Message: err.Error()}
	}
}
