package retry

import (
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultStep        = 2 * time.Second
)

// Action is the policy decision after a transport failure.
type Action struct {
	GiveUp bool
	Delay  time.Duration
}

func (a Action) String() string {
	if a.GiveUp {
		return "give_up"
	}
	return fmt.Sprintf("retry after %s", a.Delay)
}

// Policy is a linear backoff with a hard attempt budget.
// It holds no mutable state; attempt counting belongs to the caller.
type Policy struct {
	MaxAttempts int
	Step        time.Duration
}

// Default returns the reference policy: 2s, 4s, 6s, then give up.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Step: DefaultStep}
}

// NextAction maps the 1-based failure count to a retry delay or GiveUp.
func (p Policy) NextAction(attempt int) Action {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Step <= 0 {
		p.Step = DefaultStep
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > p.MaxAttempts {
		return Action{GiveUp: true}
	}
	return Action{Delay: time.Duration(attempt) * p.Step}
}
