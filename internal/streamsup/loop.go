package streamsup

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned when work is submitted to a stopped loop.
var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs posted closures one at a time on a single goroutine.
// Everything that touches session or channel state goes through it, so no
// two handlers ever run concurrently.
type Loop struct {
	inbox    chan func()
	quit     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	runOnce  sync.Once
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		inbox:    make(chan func(), buffer),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Run processes the inbox until Stop is called. Only the first call does work.
func (l *Loop) Run() {
	l.runOnce.Do(func() {
		defer close(l.finished)
		for {
			select {
			case <-l.quit:
				return
			case fn := <-l.inbox:
				select {
				case <-l.quit:
					return
				default:
				}
				fn()
			}
		}
	})
}

// Post enqueues fn. It reports false once the loop is stopping.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Call runs fn on the loop and waits for it to return.
// Must not be called from the loop goroutine itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.finished:
		select {
		case <-done:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}

// Stop makes Run return; pending closures are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// Done is closed after Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.finished }
