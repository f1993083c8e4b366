package streamsup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errStreamClosed = errors.New("stream closed")

type fakeStream struct {
	lines     chan string
	ended     chan error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		lines:  make(chan string, 16),
		ended:  make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *fakeStream) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-s.lines:
		return line, nil
	case err := <-s.ended:
		return "", err
	case <-s.closed:
		return "", errStreamClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type openResult struct {
	stream *fakeStream
	err    error
}

// fakeTransport blocks every Open until the test feeds a result.
type fakeTransport struct {
	results      chan openResult
	ignoreCancel bool

	mu      sync.Mutex
	targets []Target
	creds   []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{results: make(chan openResult, 8)}
}

func (f *fakeTransport) Open(ctx context.Context, target Target, credential string) (Stream, error) {
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.creds = append(f.creds, credential)
	f.mu.Unlock()

	var r openResult
	if f.ignoreCancel {
		r = <-f.results
	} else {
		select {
		case r = <-f.results:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.stream, nil
}

func (f *fakeTransport) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.targets)
}

type fakeTimer struct {
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fakeScheduler records requested delays; tests fire callbacks by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
	timers []*fakeTimer
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{}
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, fn)
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) fireLast(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	if len(s.fns) == 0 {
		s.mu.Unlock()
		t.Fatalf("no retry scheduled")
	}
	fn := s.fns[len(s.fns)-1]
	s.mu.Unlock()
	fn()
}

func (s *fakeScheduler) delaysSoFar() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func (s *fakeScheduler) lastTimer() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

func startLoop(t *testing.T) *Loop {
	t.Helper()
	loop := NewLoop(32)
	go loop.Run()
	t.Cleanup(func() {
		loop.Stop()
		<-loop.Done()
	})
	return loop
}

func onLoop(t *testing.T, loop *Loop, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := loop.Call(ctx, fn); err != nil {
		t.Fatalf("loop call: %v", err)
	}
}

func waitState(t *testing.T, changes <-chan StateChange, want State) StateChange {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ch := <-changes:
			if ch.To == want {
				return ch
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}
