package main

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-stream/internal/adapter/boardpresenter"
	"github.com/park285/cheese-board-stream/internal/board"
	"github.com/park285/cheese-board-stream/internal/session"
	"github.com/park285/cheese-board-stream/internal/sessionbuilder"
)

type console struct {
	deps      *sessionbuilder.Deps
	presenter *boardpresenter.Presenter
	logger    *zap.Logger
	timeout   time.Duration
}

// handle runs one input line. It reports false when the user asked to quit.
func (c *console) handle(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	f := c.presenter.Formatter()
	sess := c.deps.Session

	switch strings.ToLower(parts[0]) {
	case "quit", "exit":
		return false
	case "help":
		_ = c.presenter.Line(f.Help())
	case "board":
		snap := sess.Snapshot()
		if snap.GameID == "" {
			_ = c.presenter.Line(f.Error(session.ErrNoActiveGame, ""))
			return true
		}
		_ = c.presenter.Board(boardpresenter.ToDTOSnapshot(sess.ID(), snap, time.Now()), drawing(snap.Moves))
	case "status":
		h := boardpresenter.ToDTOHealth(sess.View())
		_ = c.presenter.Line("events: " + h.Channels.Events + ", game: " + h.Channels.Game)
		if h.Failure != "" {
			_ = c.presenter.Line(h.Failure)
		}
	case "seek":
		c.seek()
	case "move":
		if len(parts) < 2 {
			_ = c.presenter.Line(f.Help())
			return true
		}
		c.move(parts[1])
	default:
		c.move(parts[0])
	}
	return true
}

func (c *console) move(input string) {
	f := c.presenter.Formatter()
	sess := c.deps.Session
	// the session's own rejection wins over a parse error
	if err := sess.CheckMove(); err != nil {
		_ = c.presenter.Line(f.Error(err, input))
		return
	}
	uci, err := board.Normalize(sess.Snapshot().Moves, input)
	if err != nil {
		_ = c.presenter.Line(f.Error(err, input))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := sess.SubmitMove(ctx, uci); err != nil {
		_ = c.presenter.Line(f.Error(err, input))
	}
}

// seek runs in the background: the remote holds the request open until an
// opponent accepts.
func (c *console) seek() {
	f := c.presenter.Formatter()
	sess := c.deps.Session
	params := c.deps.Seek
	_ = c.presenter.Line(f.SeekCreated(params))
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-sess.Done():
				cancel()
			case <-ctx.Done():
			}
		}()
		if err := sess.CreateSeek(ctx, params); err != nil && ctx.Err() == nil {
			c.logger.Warn("seek_failed", zap.Error(err))
			_ = c.presenter.Line(f.Error(err, ""))
		}
	}()
}
