package streamsup

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopRunsClosuresInOrder(t *testing.T) {
	loop := startLoop(t)
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() { got = append(got, i) })
	}
	onLoop(t, loop, func() {})
	for i, v := range got {
		if v != i {
			t.Fatalf("got %v, want ascending order", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("got %d closures, want 5", len(got))
	}
}

func TestLoopRejectsWorkAfterStop(t *testing.T) {
	loop := NewLoop(1)
	go loop.Run()
	loop.Stop()
	<-loop.Done()

	if loop.Post(func() {}) {
		t.Fatalf("Post after Stop should report false")
	}
	err := loop.Call(context.Background(), func() {})
	if !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Call after Stop: got %v", err)
	}
}

func TestLoopCallHonoursContext(t *testing.T) {
	loop := startLoop(t)
	release := make(chan struct{})
	loop.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := loop.Call(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}
