package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/cheese-board-stream/internal/adapter/boardpresenter"
	"github.com/park285/cheese-board-stream/internal/session"
)

// ViewSource returns the latest published session view.
type ViewSource func() session.View

func Routes(views ViewSource, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", Healthz(views))
	r.Get("/snapshot", Snapshot(views, now))
	r.Get("/channels", Channels(views))
	return r
}

// Healthz answers 503 once the session has failed for good.
func Healthz(views ViewSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := boardpresenter.ToDTOHealth(views())
		status := http.StatusOK
		if h.Failure != "" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

func Snapshot(views ViewSource, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := views()
		if v.Snapshot.GameID == "" {
			writeJSON(w, http.StatusNotFound, boardpresenter.ToDTOError(session.ErrNoActiveGame))
			return
		}
		writeJSON(w, http.StatusOK, boardpresenter.ToDTOSnapshot(v.SessionID, v.Snapshot, now()))
	}
}

func Channels(views ViewSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := views()
		writeJSON(w, http.StatusOK, boardpresenter.ToDTOChannels(session.ChannelStates{Events: v.Events, Game: v.Game}))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Server serves Routes until Shutdown.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, views ViewSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Routes(views, nil),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listener and serves in the background. It returns the bound
// address, which differs from the configured one when the port was 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	s.logger.Info("status_api_listening", zap.String("addr", addr))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status_api_serve_error", zap.Error(err))
		}
	}()
	return addr, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
