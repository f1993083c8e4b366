package streamsup

import "errors"

// ErrRetryBudgetExhausted is reported when a channel enters GivenUp.
var ErrRetryBudgetExhausted = errors.New("stream retry budget exhausted")

// State is the lifecycle of one streaming channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateDisconnected
	StateGivenUp
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateDisconnected:
		return "disconnected"
	case StateGivenUp:
		return "given_up"
	default:
		return "unknown"
	}
}

// MarshalText lets states appear by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// StateChange describes one transition of a channel.
type StateChange struct {
	Channel string
	From    State
	To      State
	Attempt int
	Err     error
}
