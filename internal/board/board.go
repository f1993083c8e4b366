package board

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrBadHistory  = errors.New("move history does not replay")
)

// Position is the local replay of a game's move list.
type Position struct {
	FEN     string
	SAN     []string
	UCI     []string
	Turn    string
	Outcome string
	// LastFrom and LastTo are empty before the first move.
	LastFrom string
	LastTo   string

	game *nchess.Game
}

// Reconstruct replays UCI moves from the initial position.
func Reconstruct(moves []string) (*Position, error) {
	game, err := replay(moves)
	if err != nil {
		return nil, err
	}
	return positionOf(game), nil
}

// Draw returns an ASCII diagram of the board from White's side.
func (p *Position) Draw() string {
	if p == nil || p.game == nil {
		return ""
	}
	return p.game.Position().Board().Draw()
}

// Finished reports whether the local rules engine sees the game as over.
func (p *Position) Finished() bool {
	return p != nil && p.Outcome != string(nchess.NoOutcome)
}

// Validator pre-checks moves locally before they are sent to the remote.
type Validator struct{}

func (Validator) Validate(moves []string, move string) error {
	_, err := Normalize(moves, move)
	return err
}

// Normalize turns a move typed as UCI or SAN into the UCI token the Board
// API expects, checking legality against the position reached by moves.
func Normalize(moves []string, input string) (string, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrIllegalMove)
	}
	game, err := replay(moves)
	if err != nil {
		return "", err
	}
	pos := game.Position()

	uci := nchess.UCINotation{}
	mv, err := uci.Decode(pos, strings.ToLower(raw))
	if err != nil {
		mv, err = nchess.AlgebraicNotation{}.Decode(pos, raw)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrIllegalMove, raw)
		}
	}
	if err := game.Move(mv, nil); err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, raw)
	}
	return strings.ToLower(uci.Encode(pos, mv)), nil
}

func replay(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for i, raw := range moves {
		mv, err := notation.Decode(game.Position(), strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return nil, fmt.Errorf("%w: move %d %q: %v", ErrBadHistory, i+1, raw, err)
		}
		if err := game.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("%w: move %d %q: %v", ErrBadHistory, i+1, raw, err)
		}
	}
	return game, nil
}

func positionOf(game *nchess.Game) *Position {
	positions := game.Positions()
	moves := game.Moves()
	san := make([]string, len(moves))
	uci := make([]string, len(moves))
	alg := nchess.AlgebraicNotation{}
	for i, mv := range moves {
		if i < len(positions) {
			san[i] = alg.Encode(positions[i], mv)
			uci[i] = strings.ToLower(nchess.UCINotation{}.Encode(positions[i], mv))
		}
	}
	p := &Position{
		FEN:     game.FEN(),
		SAN:     san,
		UCI:     uci,
		Turn:    strings.ToLower(game.Position().Turn().String()),
		Outcome: string(game.Outcome()),
		game:    game,
	}
	if n := len(moves); n > 0 {
		p.LastFrom = moves[n-1].S1().String()
		p.LastTo = moves[n-1].S2().String()
	}
	return p
}
