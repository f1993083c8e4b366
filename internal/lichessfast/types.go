package lichessfast

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	EventStreamPath = "/api/stream/event"
	SeekPath        = "/api/board/seek"
	AccountPath     = "/api/account"
)

// GameStreamPath is the per-game state stream of the Board API.
func GameStreamPath(gameID string) string {
	return "/api/board/game/stream/" + url.PathEscape(gameID)
}

func movePath(gameID, move string) string {
	return "/api/board/game/" + url.PathEscape(gameID) + "/move/" + url.PathEscape(move)
}

type ColorChoice string

const (
	ColorWhite  ColorChoice = "white"
	ColorBlack  ColorChoice = "black"
	ColorRandom ColorChoice = "random"
)

func ParseColorChoice(s string) ColorChoice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return ColorWhite
	case "black", "b":
		return ColorBlack
	default:
		return ColorRandom
	}
}

// SeekParams describes a real-time seek.
type SeekParams struct {
	Rated     bool
	Minutes   int
	Increment int
	Color     ColorChoice
}

func (p SeekParams) form() url.Values {
	color := p.Color
	if color == "" {
		color = ColorRandom
	}
	v := url.Values{}
	v.Set("rated", strconv.FormatBool(p.Rated))
	v.Set("time", strconv.Itoa(p.Minutes))
	v.Set("increment", strconv.Itoa(p.Increment))
	v.Set("color", string(color))
	return v
}

func (p SeekParams) String() string {
	mode := "casual"
	if p.Rated {
		mode = "rated"
	}
	return fmt.Sprintf("%d+%d %s %s", p.Minutes, p.Increment, mode, p.Color)
}

// Account is the subset of /api/account the client needs.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Title    string `json:"title,omitempty"`
}

// CommandError is a non-2xx answer to a one-shot command.
type CommandError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *CommandError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("lichess api error: status=%d body=%s", e.Status, e.Body)
	}
	return fmt.Sprintf("lichess api error: %s %s status=%d body=%s", e.Method, e.Path, e.Status, e.Body)
}

// StatusError is returned when a stream endpoint refuses to open.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stream %s: status=%d body=%s", e.Path, e.Status, e.Body)
}

// BearerHeaders builds the auth headers for a token.
func BearerHeaders(token string) map[string]string {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
