package lichessfast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-board-stream/internal/streamsup"
)

// WSTransport opens streams over a WebSocket; every text frame carries one
// or more newline separated documents.
type WSTransport struct {
	wsURL        string
	dialTimeout  time.Duration
	pingInterval time.Duration
	logger       *zap.Logger

	// optional: inject extra headers at handshake
	headerProvider HeaderProvider
}

type WSOption func(*WSTransport)

func WithPingInterval(d time.Duration) WSOption {
	return func(t *WSTransport) { t.pingInterval = d }
}

func WithDialTimeout(d time.Duration) WSOption {
	return func(t *WSTransport) {
		if d > 0 {
			t.dialTimeout = d
		}
	}
}

func WithHandshakeHeaders(h HeaderProvider) WSOption {
	return func(t *WSTransport) { t.headerProvider = h }
}

func NewWSTransport(wsURL string, logger *zap.Logger, opts ...WSOption) *WSTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &WSTransport{
		wsURL:        strings.TrimRight(wsURL, "/"),
		dialTimeout:  10 * time.Second,
		pingInterval: 30 * time.Second,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *WSTransport) Open(ctx context.Context, target streamsup.Target, credential string) (streamsup.Stream, error) {
	dialCtx, cancel := context.WithTimeout(ctx, t.dialTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, t.wsURL+target.Path, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      t.buildHeaders(credential),
	})
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, &StatusError{Path: target.Path, Status: resp.StatusCode, Body: err.Error()}
		}
		return nil, fmt.Errorf("ws dial %s: %w", target.Path, err)
	}
	conn.SetReadLimit(maxLineBytes)

	s := &wsStream{conn: conn, path: target.Path, logger: t.logger, stopCh: make(chan struct{})}
	if t.pingInterval > 0 {
		s.wg.Add(1)
		go s.pingLoop(ctx, t.pingInterval)
	}
	return s, nil
}

func (t *WSTransport) buildHeaders(credential string) http.Header {
	hdr := http.Header{}
	if t.headerProvider != nil {
		for k, v := range t.headerProvider() {
			if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
				continue
			}
			hdr.Set(k, v)
		}
	}
	for k, v := range BearerHeaders(credential) {
		hdr.Set(k, v)
	}
	return hdr
}

type wsStream struct {
	conn   *websocket.Conn
	path   string
	logger *zap.Logger

	// lines left over from a frame that carried several documents
	pending []string

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (s *wsStream) ReadLine(ctx context.Context) (string, error) {
	for len(s.pending) == 0 {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return "", io.EOF
			}
			return "", err
		}
		if typ != websocket.MessageText {
			continue
		}
		s.pending = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}
	line := s.pending[0]
	s.pending = s.pending[1:]
	return line, nil
}

func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		err = s.conn.Close(websocket.StatusNormalClosure, "close")
		s.wg.Wait()
	})
	return err
}

// pingLoop drops the connection after two consecutive failed pings so the
// pending read fails and the supervisor takes over.
func (s *wsStream) pingLoop(ctx context.Context, every time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := s.conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				s.logger.Warn("ws_ping_failed", zap.String("path", s.path), zap.Error(err))
				_ = s.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}
