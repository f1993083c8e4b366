package streamsup

import (
	"context"
	"time"
)

// Target names one streaming endpoint of the remote service.
type Target struct {
	Name string
	Path string
}

// Stream is one open streaming connection delivering text lines.
type Stream interface {
	// ReadLine blocks for the next line. io.EOF means the remote closed cleanly.
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// Transport opens streams. Open returns once the remote has confirmed the
// channel (HTTP 200, completed WebSocket handshake).
type Transport interface {
	Open(ctx context.Context, target Target, credential string) (Stream, error)
}

// Timer is the cancellable handle of a scheduled retry.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn after d on some other goroutine.
type Scheduler func(d time.Duration, fn func()) Timer

// AfterFunc is the production Scheduler.
func AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
