package main

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/park285/cheese-board-stream/internal/adapter/boardpresenter"
	"github.com/park285/cheese-board-stream/internal/board"
	"github.com/park285/cheese-board-stream/internal/boardevent"
	"github.com/park285/cheese-board-stream/internal/boardstate"
	appcfg "github.com/park285/cheese-board-stream/internal/config"
	"github.com/park285/cheese-board-stream/internal/msgcat"
	"github.com/park285/cheese-board-stream/internal/obslog"
	"github.com/park285/cheese-board-stream/internal/sessionbuilder"
	"github.com/park285/cheese-board-stream/internal/streamsup"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf(".env error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	presenter := boardpresenter.NewPresenter(os.Stdout, boardpresenter.NewFormatter(catalog))
	f := presenter.Formatter()

	initCtx, cancel := context.WithTimeout(context.Background(), cfg.CommandTimeout)
	deps, err := sessionbuilder.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		log.Fatalf("session init error: %v", err)
	}
	sess := deps.Session

	sess.OnSnapshot(func(snap boardstate.Snapshot) {
		_ = presenter.Board(boardpresenter.ToDTOSnapshot(sess.ID(), snap, time.Now()), drawing(snap.Moves))
	})
	sess.OnSideEvent(func(ev boardevent.Event) {
		_ = presenter.Line(f.Notice(boardpresenter.ToDTONotice(ev)))
	})
	sess.OnChannelState(func(change streamsup.StateChange) {
		_ = presenter.Line(f.ChannelState(change))
	})
	sess.OnFailure(func(err error) {
		_ = presenter.Line(f.Failure(err))
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), 5*time.Second)
	err = sess.Start(startCtx)
	cancelStart()
	if err != nil {
		log.Fatalf("session start error: %v", err)
	}
	_ = presenter.Line(f.Help())

	quit := make(chan struct{})
	c := &console{deps: deps, presenter: presenter, logger: logger, timeout: cfg.CommandTimeout}
	go func() {
		defer close(quit)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if !c.handle(scanner.Text()) {
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-quit:
	case <-sess.Done():
		// let the final snapshot and failure reach the console
		time.Sleep(100 * time.Millisecond)
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	if err := deps.Close(closeCtx); err != nil {
		logger.Warn("shutdown_error", zap.Error(err))
	}
}

func drawing(moves []string) string {
	pos, err := board.Reconstruct(moves)
	if err != nil {
		return ""
	}
	return pos.Draw()
}
