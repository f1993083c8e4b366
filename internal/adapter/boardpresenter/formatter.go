package boardpresenter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-board-stream/internal/lichessfast"
	"github.com/park285/cheese-board-stream/internal/msgcat"
	"github.com/park285/cheese-board-stream/internal/streamsup"
	"github.com/park285/cheese-board-stream/pkg/boarddto"
)

// Formatter renders DTOs into console text through the message catalog.
// A nil catalog falls back to the built-in English strings.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) render(key string, data map[string]any, fallback string) string {
	if f == nil {
		return fallback
	}
	return f.cat.RenderOr(key, data, fallback)
}

func (f *Formatter) Snapshot(s *boarddto.Snapshot) string {
	if s == nil {
		return ""
	}
	opponent := s.OpponentName
	if opponent == "" {
		opponent = "opponent"
	}
	color := s.MyColor
	if color == "" {
		color = "?"
	}

	lines := []string{f.render("game.header", map[string]any{
		"GameID":    s.GameID,
		"Color":     color,
		"Opponent":  opponent,
		"Rating":    s.OpponentRating,
		"MoveCount": s.MoveCount,
	}, fmt.Sprintf("%s | you play %s vs %s | %d moves", s.GameID, color, opponent, s.MoveCount))}

	switch {
	case s.Invalid:
		lines = append(lines, f.render("game.invalid", map[string]any{"GameID": s.GameID}, "This game does not belong to this account."))
	case s.Finished():
		lines = append(lines, f.render("game.finished", map[string]any{
			"Substatus": s.Substatus,
			"Winner":    s.Winner,
		}, "Game over: "+s.Substatus))
	default:
		if s.IsMyTurn && s.LastOpponentMove != "" {
			lines = append(lines, f.render("game.opponent_moved", map[string]any{
				"Opponent": opponent,
				"Move":     lastOpponentMoveSAN(s),
			}, opponent+" played "+s.LastOpponentMove))
		}
		if s.IsMyTurn {
			lines = append(lines, f.render("game.your_turn", nil, "Your move."))
		} else {
			lines = append(lines, f.render("game.their_turn", map[string]any{"Opponent": opponent}, "Waiting for "+opponent+"."))
		}
	}
	return strings.Join(lines, "\n")
}

// lastOpponentMoveSAN prefers SAN for the opponent's last move when it is
// the final move of the list.
func lastOpponentMoveSAN(s *boarddto.Snapshot) string {
	n := len(s.MovesUCI)
	if n > 0 && len(s.MovesSAN) == n && s.MovesUCI[n-1] == s.LastOpponentMove {
		return s.MovesSAN[n-1]
	}
	return s.LastOpponentMove
}

func (f *Formatter) Notice(n boarddto.Notice) string {
	switch n.Kind {
	case "gameStart":
		return f.render("game.start", map[string]any{"GameID": n.GameID, "Opponent": n.Username}, "Game "+n.GameID+" found.")
	case "chatLine":
		return f.render("notice.chat", map[string]any{"Room": n.Room, "Username": n.Username, "Text": n.Text}, n.Username+": "+n.Text)
	default:
		return f.render("notice.unknown", map[string]any{"Kind": n.Kind}, "(ignored event: "+n.Kind+")")
	}
}

func (f *Formatter) ChannelState(c streamsup.StateChange) string {
	return f.render("channel.state", map[string]any{
		"Channel": c.Channel,
		"From":    c.From.String(),
		"To":      c.To.String(),
		"Attempt": c.Attempt,
	}, fmt.Sprintf("[%s] %s -> %s", c.Channel, c.From, c.To))
}

func (f *Formatter) SeekCreated(p lichessfast.SeekParams) string {
	return f.render("seek.created", map[string]any{"Seek": p.String()}, "Seek posted: "+p.String())
}

func (f *Formatter) Failure(err error) string {
	if err == nil {
		return ""
	}
	return f.render("errors.failure", map[string]any{"Error": err.Error()}, "Session stopped: "+err.Error())
}

// Error renders a command error for the user.
func (f *Formatter) Error(err error, move string) string {
	if err == nil {
		return ""
	}
	dto := ToDTOError(err)
	switch dto.Code {
	case "illegal_move":
		return f.render("errors.illegal_move", map[string]any{"Move": move}, "Illegal move: "+move)
	case "command_failed":
		var cmdErr *lichessfast.CommandError
		if errors.As(err, &cmdErr) {
			return f.render("errors.command_failed", map[string]any{"Status": cmdErr.Status, "Body": cmdErr.Body}, cmdErr.Error())
		}
	case "not_your_turn", "no_active_game", "game_in_progress", "session_ended":
		return f.render("errors."+dto.Code, nil, dto.Message)
	}
	return f.render("errors.unknown", map[string]any{"Error": err.Error()}, "Error: "+err.Error())
}

func (f *Formatter) Help() string {
	return strings.TrimRight(f.render("help", nil, "Commands: <move>, seek, board, status, quit"), "\n")
}
