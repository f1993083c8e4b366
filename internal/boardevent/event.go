package boardevent

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind is the wire discriminator carried in the "type" field.
type Kind string

const (
	KindGameStart  Kind = "gameStart"
	KindGameFull   Kind = "gameFull"
	KindGameState  Kind = "gameState"
	KindGameFinish Kind = "gameFinish"
	KindChatLine   Kind = "chatLine"
	KindUnknown    Kind = "unknown"
)

// Event is one classified inbound message. The set of implementations is closed.
type Event interface {
	Kind() Kind
	isEvent()
}

// Player is one side of a game as announced by gameFull.
type Player struct {
	ID      string
	Name    string
	Rating  int
	AILevel int
}

// DisplayName falls back to the id, then to an engine label.
func (p Player) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	if strings.TrimSpace(p.ID) != "" {
		return p.ID
	}
	if p.AILevel > 0 {
		return "AI level " + strconv.Itoa(p.AILevel)
	}
	return ""
}

type GameStart struct {
	GameID         string
	OpponentName   string
	OpponentRating int
	Color          string
	IsMyTurn       *bool
}

type GameFull struct {
	GameID string
	White  Player
	Black  Player
	Status string
	Moves  string
}

type GameState struct {
	Moves    string
	Status   string
	Winner   string
	IsMyTurn *bool
}

type GameFinish struct {
	GameID string
	Status string
	Winner string
}

type ChatLine struct {
	Username string
	Text     string
	Room     string
}

// Unknown keeps any message whose discriminator is not recognised.
type Unknown struct {
	Type string
	Raw  string
}

func (GameStart) Kind() Kind  { return KindGameStart }
func (GameFull) Kind() Kind   { return KindGameFull }
func (GameState) Kind() Kind  { return KindGameState }
func (GameFinish) Kind() Kind { return KindGameFinish }
func (ChatLine) Kind() Kind   { return KindChatLine }
func (Unknown) Kind() Kind    { return KindUnknown }

func (GameStart) isEvent()  {}
func (GameFull) isEvent()   {}
func (GameState) isEvent()  {}
func (GameFinish) isEvent() {}
func (ChatLine) isEvent()   {}
func (Unknown) isEvent()    {}

// statusField accepts both `"started"` and `{"id":20,"name":"started"}`.
type statusField string

func (s *statusField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = statusField(v)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = statusField(obj.Name)
	return nil
}

type envelope struct {
	Type string `json:"type"`
}

type wireOpponent struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	AI       int    `json:"ai"`
}

type wireGameRef struct {
	GameID   string       `json:"gameId"`
	ID       string       `json:"id"`
	Color    string       `json:"color"`
	IsMyTurn *bool        `json:"isMyTurn"`
	Status   statusField  `json:"status"`
	Winner   string       `json:"winner"`
	Opponent wireOpponent `json:"opponent"`
}

func (g wireGameRef) id() string {
	if strings.TrimSpace(g.GameID) != "" {
		return strings.TrimSpace(g.GameID)
	}
	return strings.TrimSpace(g.ID)
}

type wireGameStart struct {
	Game wireGameRef `json:"game"`
}

type wirePlayer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Rating  int    `json:"rating"`
	AILevel int    `json:"aiLevel"`
}

type wireState struct {
	Moves    string      `json:"moves"`
	Status   statusField `json:"status"`
	Winner   string      `json:"winner"`
	IsMyTurn *bool       `json:"isMyTurn"`
}

type wireGameFull struct {
	ID    string     `json:"id"`
	White wirePlayer `json:"white"`
	Black wirePlayer `json:"black"`
	State wireState  `json:"state"`
}

type wireGameFinish struct {
	Game   *wireGameRef `json:"game"`
	ID     string       `json:"id"`
	Status statusField  `json:"status"`
	Winner string       `json:"winner"`
}

type wireChatLine struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	Room     string `json:"room"`
}

func (p wirePlayer) toPlayer() Player {
	return Player{
		ID:      strings.TrimSpace(p.ID),
		Name:    strings.TrimSpace(p.Name),
		Rating:  p.Rating,
		AILevel: p.AILevel,
	}
}
