package session

import (
	"sync"

	"github.com/park285/cheese-board-stream/internal/boardevent"
	"github.com/park285/cheese-board-stream/internal/boardstate"
	"github.com/park285/cheese-board-stream/internal/streamsup"
)

type SnapshotCallback func(snap boardstate.Snapshot)

// SideEventCallback receives events that do not change the snapshot
// (chat lines, unknown discriminators, game start notices).
type SideEventCallback func(ev boardevent.Event)

type ChannelStateCallback func(change streamsup.StateChange)

type FailureCallback func(err error)

type callbackEntry[T any] struct {
	id       int
	callback T
}

// callbacks is an ordered registry; ids are never reused.
type callbacks[T any] struct {
	mu      sync.RWMutex
	nextID  int
	entries []callbackEntry[T]
}

func (c *callbacks[T]) add(cb T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.entries = append(c.entries, callbackEntry[T]{id: c.nextID, callback: cb})
	return c.nextID
}

func (c *callbacks[T]) remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.id == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

func (c *callbacks[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.callback)
	}
	return out
}

// OnSnapshot registers cb for every accepted snapshot change.
func (s *Session) OnSnapshot(cb SnapshotCallback) int { return s.snapshotCbs.add(cb) }

func (s *Session) RemoveSnapshotCallback(id int) { s.snapshotCbs.remove(id) }

func (s *Session) OnSideEvent(cb SideEventCallback) int { return s.sideCbs.add(cb) }

func (s *Session) RemoveSideEventCallback(id int) { s.sideCbs.remove(id) }

func (s *Session) OnChannelState(cb ChannelStateCallback) int { return s.stateCbs.add(cb) }

func (s *Session) RemoveChannelStateCallback(id int) { s.stateCbs.remove(id) }

// OnFailure registers cb for the permanent failure of the session.
func (s *Session) OnFailure(cb FailureCallback) int { return s.failureCbs.add(cb) }

func (s *Session) RemoveFailureCallback(id int) { s.failureCbs.remove(id) }

func (s *Session) emitSnapshot(snap boardstate.Snapshot) {
	for _, cb := range s.snapshotCbs.snapshot() {
		if cb != nil {
			cb(snap.Clone())
		}
	}
}

func (s *Session) emitSideEvent(ev boardevent.Event) {
	for _, cb := range s.sideCbs.snapshot() {
		if cb != nil {
			cb(ev)
		}
	}
}

func (s *Session) emitChannelState(change streamsup.StateChange) {
	for _, cb := range s.stateCbs.snapshot() {
		if cb != nil {
			cb(change)
		}
	}
}

func (s *Session) emitFailure(err error) {
	for _, cb := range s.failureCbs.snapshot() {
		if cb != nil {
			cb(err)
		}
	}
}
