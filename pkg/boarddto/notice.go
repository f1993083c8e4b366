package boarddto

// Notice is a side-channel event reduced to display fields.
type Notice struct {
	Kind     string `json:"kind"`
	GameID   string `json:"gameId,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text,omitempty"`
	Room     string `json:"room,omitempty"`
	Raw      string `json:"raw,omitempty"`
}
