package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appcfg "github.com/park285/cheese-board-stream/internal/config"
	"github.com/park285/cheese-board-stream/internal/lichessfast"
	"github.com/park285/cheese-board-stream/internal/mirror"
	"github.com/park285/cheese-board-stream/internal/obslog"
	"github.com/park285/cheese-board-stream/internal/streamsup"
	"github.com/park285/cheese-board-stream/pkg/boarddto"
)

func main() {
	window := flag.Duration("window", 10*time.Second, "how long to read the event stream")
	watch := flag.Bool("watch", false, "print snapshots mirrored to REDIS_URL instead of probing lichess")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf(".env error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if *watch {
		watchMirror(cfg)
		return
	}
	probe(cfg, *window)
}

func probe(cfg *appcfg.AppConfig, window time.Duration) {
	client := lichessfast.NewClient(cfg.LichessBaseURL,
		lichessfast.WithToken(cfg.LichessToken),
		lichessfast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	acct, err := client.Account(ctx)
	cancel()
	if err != nil {
		log.Printf("/api/account error: %v", err)
	} else {
		log.Printf("/api/account ok: id=%s username=%s", acct.ID, acct.Username)
	}

	var transport streamsup.Transport
	if cfg.StreamTransport == appcfg.TransportWS {
		transport = lichessfast.NewWSTransport(cfg.LichessWSURL, obslog.L())
	} else {
		transport = lichessfast.NewNDJSONTransport(cfg.LichessBaseURL, nil, obslog.L())
	}

	sctx, scancel := context.WithTimeout(context.Background(), window)
	defer scancel()
	target := streamsup.Target{Name: "events", Path: lichessfast.EventStreamPath}
	stream, err := transport.Open(sctx, target, cfg.LichessToken)
	if err != nil {
		log.Printf("%s open error (%s): %v", target.Path, cfg.StreamTransport, err)
		return
	}
	defer stream.Close()
	log.Printf("%s open (%s), reading for %s", target.Path, cfg.StreamTransport, window)

	lines := 0
	for {
		line, err := stream.ReadLine(sctx)
		if err != nil {
			if sctx.Err() == nil {
				log.Printf("stream ended: %v", err)
			}
			break
		}
		lines++
		if line == "" {
			fmt.Println("(keep-alive)")
			continue
		}
		fmt.Println(line)
	}
	log.Printf("read %d lines", lines)
}

func watchMirror(cfg *appcfg.AppConfig) {
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required for -watch")
	}
	m, err := mirror.Open(cfg.RedisURL, obslog.L())
	if err != nil {
		log.Fatalf("mirror error: %v", err)
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cur, err := m.Current(ctx); err == nil && cur != nil {
		printSnapshot(cur)
	}
	err = m.Watch(ctx, printSnapshot)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("watch error: %v", err)
	}
}

func printSnapshot(s *boarddto.Snapshot) {
	turn := "theirs"
	if s.IsMyTurn {
		turn = "mine"
	}
	fmt.Printf("%s %s %s vs %s moves=%d turn=%s fen=%s\n",
		s.UpdatedAt.Format(time.RFC3339), s.GameID, s.MyColor, s.OpponentName, s.MoveCount, turn, s.FEN)
}
