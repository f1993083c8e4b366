package config

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-board-stream/internal/lichessfast"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"LICHESS_TOKEN": " lip_x "})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.LichessBaseURL != "https://lichess.org" || cfg.LichessToken != "lip_x" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.StreamTransport != TransportNDJSON || !cfg.LocalMoveCheck || cfg.DryRun {
		t.Fatalf("cfg = %+v", cfg)
	}
	p := cfg.RetryPolicy()
	if p.MaxAttempts != 3 || p.Step != 2*time.Second {
		t.Fatalf("policy = %+v", p)
	}
	if cfg.CommandTimeout != 10*time.Second {
		t.Fatalf("command timeout = %v", cfg.CommandTimeout)
	}
	seek := cfg.SeekParams()
	if seek.Minutes != 10 || seek.Increment != 0 || seek.Color != lichessfast.ColorRandom || seek.Rated {
		t.Fatalf("seek = %+v", seek)
	}
}

func TestTokenRequired(t *testing.T) {
	_, err := LoadFrom(map[string]string{})
	if err == nil || !strings.Contains(err.Error(), "LICHESS_TOKEN") {
		t.Fatalf("got %v", err)
	}
}

func TestOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"LICHESS_TOKEN":          "tok",
		"LICHESS_BASE_URL":       "http://localhost:9663/",
		"STREAM_TRANSPORT":       "WS",
		"RECONNECT_MAX_ATTEMPTS": "5",
		"RECONNECT_STEP":         "500ms",
		"DRY_RUN":                "true",
		"SEEK_COLOR":             "b",
		"SEEK_MINUTES":           "3",
		"SEEK_INCREMENT":         "2",
		"SEEK_RATED":             "true",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.LichessBaseURL != "http://localhost:9663" {
		t.Fatalf("base = %q", cfg.LichessBaseURL)
	}
	if cfg.LichessWSURL != "ws://localhost:9663" {
		t.Fatalf("ws url = %q", cfg.LichessWSURL)
	}
	if p := cfg.RetryPolicy(); p.MaxAttempts != 5 || p.Step != 500*time.Millisecond {
		t.Fatalf("policy = %+v", p)
	}
	if !cfg.DryRun {
		t.Fatalf("dry run not set")
	}
	want := lichessfast.SeekParams{Rated: true, Minutes: 3, Increment: 2, Color: lichessfast.ColorBlack}
	if got := cfg.SeekParams(); got != want {
		t.Fatalf("seek = %+v", got)
	}
}

func TestRejectsBadValues(t *testing.T) {
	cases := []map[string]string{
		{"LICHESS_TOKEN": "tok", "STREAM_TRANSPORT": "grpc"},
		{"LICHESS_TOKEN": "tok", "RECONNECT_MAX_ATTEMPTS": "0"},
		{"LICHESS_TOKEN": "tok", "RECONNECT_STEP": "soon"},
		{"LICHESS_TOKEN": "tok", "SEEK_MINUTES": "-1"},
	}
	for _, vars := range cases {
		if _, err := LoadFrom(vars); err == nil {
			t.Fatalf("LoadFrom(%v) should fail", vars)
		}
	}
}
