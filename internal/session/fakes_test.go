package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-board-stream/internal/boardstate"
	"github.com/park285/cheese-board-stream/internal/lichessfast"
	"github.com/park285/cheese-board-stream/internal/streamsup"
)

type fakeStream struct {
	lines     chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{lines: make(chan string, 16), closed: make(chan struct{})}
}

func (s *fakeStream) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-s.lines:
		return line, nil
	case <-s.closed:
		return "", errors.New("closed")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-s.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not closed")
	}
}

type openResult struct {
	stream *fakeStream
	err    error
}

type fakeTransport struct {
	results chan openResult
	opened  chan string

	mu    sync.Mutex
	paths []string
	creds []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{results: make(chan openResult, 8), opened: make(chan string, 16)}
}

func (f *fakeTransport) Open(ctx context.Context, target streamsup.Target, credential string) (streamsup.Stream, error) {
	f.mu.Lock()
	f.paths = append(f.paths, target.Path)
	f.creds = append(f.creds, credential)
	f.mu.Unlock()
	f.opened <- target.Path

	select {
	case r := <-f.results:
		if r.err != nil {
			return nil, r.err
		}
		return r.stream, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

func (f *fakeTransport) waitOpen(t *testing.T) string {
	t.Helper()
	select {
	case p := <-f.opened:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("transport was not opened")
		return ""
	}
}

type submitted struct {
	gameID string
	move   string
}

type fakeCommander struct {
	mu    sync.Mutex
	moves []submitted
	seeks []lichessfast.SeekParams
	err   error
}

func (c *fakeCommander) SubmitMove(_ context.Context, gameID, move string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moves = append(c.moves, submitted{gameID: gameID, move: move})
	return c.err
}

func (c *fakeCommander) CreateSeek(_ context.Context, params lichessfast.SeekParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeks = append(c.seeks, params)
	return c.err
}

func (c *fakeCommander) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.moves) + len(c.seeks)
}

type rejectAll struct{}

func (rejectAll) Validate([]string, string) error { return errors.New("no legal move") }

// manualScheduler keeps retry callbacks until the test fires them.
type manualScheduler struct {
	mu  sync.Mutex
	fns []func()
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func (m *manualScheduler) Schedule(_ time.Duration, fn func()) streamsup.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, fn)
	return noopTimer{}
}

func (m *manualScheduler) fireAll() {
	m.mu.Lock()
	fns := append([]func(){}, m.fns...)
	m.fns = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func immediate(_ time.Duration, fn func()) streamsup.Timer {
	return time.AfterFunc(0, fn)
}

type fixture struct {
	s         *Session
	transport *fakeTransport
	commander *fakeCommander
	snaps     chan boardstate.Snapshot
	states    chan streamsup.StateChange
	failures  chan error
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		transport: newFakeTransport(),
		commander: &fakeCommander{},
		snaps:     make(chan boardstate.Snapshot, 32),
		states:    make(chan streamsup.StateChange, 64),
		failures:  make(chan error, 4),
	}
	cfg := Config{
		Self:       "self",
		Credential: "tok",
		Transport:  f.transport,
		Commander:  f.commander,
		Schedule:   (&manualScheduler{}).Schedule,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.s = s
	s.OnSnapshot(func(snap boardstate.Snapshot) { f.snaps <- snap })
	s.OnChannelState(func(c streamsup.StateChange) { f.states <- c })
	s.OnFailure(func(err error) { f.failures <- err })
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (f *fixture) waitState(t *testing.T, channel string, want streamsup.State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-f.states:
			if c.Channel == channel && c.To == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s to become %s", channel, want)
		}
	}
}

func (f *fixture) nextSnapshot(t *testing.T) boardstate.Snapshot {
	t.Helper()
	select {
	case s := <-f.snaps:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot notification")
		return boardstate.Snapshot{}
	}
}

func (f *fixture) noSnapshot(t *testing.T) {
	t.Helper()
	select {
	case s := <-f.snaps:
		t.Fatalf("unexpected snapshot %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

// enterGame drives the session from Start to a streaming game channel for g1.
func (f *fixture) enterGame(t *testing.T) (events, game *fakeStream) {
	t.Helper()
	f.start(t)
	if p := f.transport.waitOpen(t); p != lichessfast.EventStreamPath {
		t.Fatalf("first open = %q", p)
	}
	events = newFakeStream()
	f.transport.results <- openResult{stream: events}
	f.waitState(t, "events", streamsup.StateStreaming)

	events.lines <- gameStartLine
	if p := f.transport.waitOpen(t); p != lichessfast.GameStreamPath("g1") {
		t.Fatalf("game open = %q", p)
	}
	events.waitClosed(t)

	placeholder := f.nextSnapshot(t)
	if placeholder.GameID != "g1" || placeholder.OpponentName != "bob" {
		t.Fatalf("placeholder = %+v", placeholder)
	}

	game = newFakeStream()
	f.transport.results <- openResult{stream: game}
	f.waitState(t, "game", streamsup.StateStreaming)
	return events, game
}

const (
	gameStartLine    = `{"type":"gameStart","game":{"gameId":"g1","color":"black","opponent":{"id":"bob","username":"bob","rating":1500}}}`
	gameFullAsBlack  = `{"type":"gameFull","id":"g1","white":{"id":"bob","name":"bob","rating":1500},"black":{"id":"self","name":"self","rating":1480},"state":{"type":"gameState","moves":"","status":"started"}}`
	gameFullStranger = `{"type":"gameFull","id":"g1","white":{"id":"alice"},"black":{"id":"carol"},"state":{"moves":"","status":"started"}}`
)
