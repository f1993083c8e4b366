package boarddto

type ChannelStates struct {
	Events string `json:"events"`
	Game   string `json:"game"`
}

// Health is the body of the status endpoint.
type Health struct {
	Status    string        `json:"status"`
	SessionID string        `json:"sessionId"`
	Channels  ChannelStates `json:"channels"`
	Failure   string        `json:"failure,omitempty"`
	Ended     bool          `json:"ended"`
}
