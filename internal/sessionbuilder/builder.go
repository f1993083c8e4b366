package sessionbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-stream/internal/adapter/boardpresenter"
	"github.com/park285/cheese-board-stream/internal/board"
	"github.com/park285/cheese-board-stream/internal/boardstate"
	"github.com/park285/cheese-board-stream/internal/config"
	"github.com/park285/cheese-board-stream/internal/lichessfast"
	"github.com/park285/cheese-board-stream/internal/mirror"
	"github.com/park285/cheese-board-stream/internal/session"
	"github.com/park285/cheese-board-stream/internal/statusapi"
	"github.com/park285/cheese-board-stream/internal/streamsup"
)

type Deps struct {
	Session   *session.Session
	Client    *lichessfast.Client
	Commander lichessfast.Commander
	Self      string
	Seek      lichessfast.SeekParams

	// Mirror and Status are nil unless configured.
	Mirror     *mirror.Mirror
	Status     *statusapi.Server
	StatusAddr string
}

// New wires a session from cfg. The session is built but not started; the
// status API, when configured, is already listening.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := lichessfast.NewClient(cfg.LichessBaseURL,
		lichessfast.WithToken(cfg.LichessToken),
		lichessfast.WithTimeout(cfg.CommandTimeout),
		lichessfast.WithSeekTimeout(cfg.SeekTimeout),
	)

	self, err := resolveSelf(ctx, cfg, client)
	if err != nil {
		return nil, err
	}
	logger.Info("identity_resolved", zap.String("self", self), zap.Bool("dry_run", cfg.DryRun))

	transport, err := newTransport(cfg, logger)
	if err != nil {
		return nil, err
	}

	commander := lichessfast.NewCommander(cfg.DryRun, client, logger)
	var validator session.MoveValidator
	if cfg.LocalMoveCheck {
		validator = board.Validator{}
	}

	sess, err := session.New(session.Config{
		Self:       self,
		Credential: cfg.LichessToken,
		Transport:  transport,
		Commander:  commander,
		Validator:  validator,
		Policy:     cfg.RetryPolicy(),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	deps := &Deps{
		Session:   sess,
		Client:    client,
		Commander: commander,
		Self:      self,
		Seek:      cfg.SeekParams(),
	}

	if cfg.RedisURL != "" {
		m, err := mirror.Open(cfg.RedisURL, logger)
		if err != nil {
			_ = sess.Close(context.Background())
			return nil, fmt.Errorf("init mirror: %w", err)
		}
		m.Start()
		AttachMirror(sess, m)
		deps.Mirror = m
	}

	if cfg.StatusAddr != "" {
		srv := statusapi.NewServer(cfg.StatusAddr, sess.View, logger)
		addr, err := srv.Start()
		if err != nil {
			_ = deps.Close(context.Background())
			return nil, fmt.Errorf("start status api: %w", err)
		}
		deps.Status = srv
		deps.StatusAddr = addr
	}
	return deps, nil
}

// AttachMirror forwards every snapshot of a known game to m.
func AttachMirror(sess *session.Session, m *mirror.Mirror) int {
	return sess.OnSnapshot(func(snap boardstate.Snapshot) {
		if snap.GameID == "" {
			return
		}
		m.Enqueue(boardpresenter.ToDTOSnapshot(sess.ID(), snap, time.Now()))
	})
}

// Close releases everything New created. The session goes first so the
// mirror receives its last snapshot before flushing.
func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	if d.Session != nil {
		errs = append(errs, d.Session.Close(ctx))
	}
	if d.Status != nil {
		errs = append(errs, d.Status.Shutdown(ctx))
	}
	if d.Mirror != nil {
		errs = append(errs, d.Mirror.Close())
	}
	return errors.Join(errs...)
}

func resolveSelf(ctx context.Context, cfg *config.AppConfig, client *lichessfast.Client) (string, error) {
	if name := strings.TrimSpace(cfg.LichessUsername); name != "" {
		return strings.ToLower(name), nil
	}
	acct, err := client.Account(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve account: %w", err)
	}
	return acct.ID, nil
}

func newTransport(cfg *config.AppConfig, logger *zap.Logger) (streamsup.Transport, error) {
	switch cfg.StreamTransport {
	case config.TransportNDJSON:
		return lichessfast.NewNDJSONTransport(cfg.LichessBaseURL, nil, logger), nil
	case config.TransportWS:
		return lichessfast.NewWSTransport(cfg.LichessWSURL, logger), nil
	default:
		return nil, fmt.Errorf("unsupported stream transport %q", cfg.StreamTransport)
	}
}
