package boardevent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed marks a line that is not a decodable JSON object.
var ErrMalformed = errors.New("malformed stream message")

// Outcome tells the caller what to do with a classified line.
type Outcome int

const (
	OutcomeEvent Outcome = iota
	OutcomeSkip
	OutcomeParseError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEvent:
		return "event"
	case OutcomeSkip:
		return "skip"
	case OutcomeParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Result is the classification of one raw line.
// Event is set only for OutcomeEvent; Err only for OutcomeParseError.
type Result struct {
	Outcome Outcome
	Event   Event
	Raw     string
	Err     error
}

// Classify turns one stream line into a typed event.
// Blank lines are keep-alives. It never panics and never returns a nil Result.
func Classify(line string) Result {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Result{Outcome: OutcomeSkip, Raw: line}
	}
	if trimmed[0] != '{' {
		return parseError(line, errors.New("not a JSON object"))
	}
	raw := []byte(trimmed)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return parseError(line, err)
	}

	ev, err := decode(Kind(strings.TrimSpace(env.Type)), raw, line)
	if err != nil {
		return parseError(line, err)
	}
	return Result{Outcome: OutcomeEvent, Event: ev, Raw: line}
}

func decode(kind Kind, raw []byte, line string) (Event, error) {
	switch kind {
	case KindGameStart:
		var w wireGameStart
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return GameStart{
			GameID:         w.Game.id(),
			OpponentName:   strings.TrimSpace(w.Game.Opponent.Username),
			OpponentRating: w.Game.Opponent.Rating,
			Color:          strings.ToLower(strings.TrimSpace(w.Game.Color)),
			IsMyTurn:       w.Game.IsMyTurn,
		}, nil
	case KindGameFull:
		var w wireGameFull
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return GameFull{
			GameID: strings.TrimSpace(w.ID),
			White:  w.White.toPlayer(),
			Black:  w.Black.toPlayer(),
			Status: string(w.State.Status),
			Moves:  w.State.Moves,
		}, nil
	case KindGameState:
		var w wireState
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return GameState{
			Moves:    w.Moves,
			Status:   string(w.Status),
			Winner:   strings.TrimSpace(w.Winner),
			IsMyTurn: w.IsMyTurn,
		}, nil
	case KindGameFinish:
		var w wireGameFinish
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		ev := GameFinish{GameID: strings.TrimSpace(w.ID), Status: string(w.Status), Winner: strings.TrimSpace(w.Winner)}
		if w.Game != nil {
			if id := w.Game.id(); id != "" {
				ev.GameID = id
			}
			if w.Game.Status != "" {
				ev.Status = string(w.Game.Status)
			}
			if w.Game.Winner != "" {
				ev.Winner = strings.TrimSpace(w.Game.Winner)
			}
		}
		return ev, nil
	case KindChatLine:
		var w wireChatLine
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return ChatLine{Username: w.Username, Text: w.Text, Room: w.Room}, nil
	default:
		return Unknown{Type: string(kind), Raw: line}, nil
	}
}

func parseError(line string, cause error) Result {
	return Result{
		Outcome: OutcomeParseError,
		Raw:     line,
		Err:     fmt.Errorf("%w: %v", ErrMalformed, cause),
	}
}
