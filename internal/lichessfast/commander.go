package lichessfast

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Commander abstracts the outbound command path so a dry run can replace
// the network.
type Commander interface {
	SubmitMove(ctx context.Context, gameID, move string) error
	CreateSeek(ctx context.Context, params SeekParams) error
}

// NewCommander returns the HTTP commander, or a logging no-op when dryrun is set.
func NewCommander(dryrun bool, c *Client, logger *zap.Logger) Commander {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dryrun {
		return &dryRunCommander{logger: logger}
	}
	return &httpCommander{c: c, logger: logger}
}

type httpCommander struct {
	c      *Client
	logger *zap.Logger
}

func (h *httpCommander) SubmitMove(ctx context.Context, gameID, move string) error {
	if h == nil || h.c == nil {
		return errors.New("http commander not available")
	}
	return h.c.SubmitMove(ctx, gameID, move)
}

func (h *httpCommander) CreateSeek(ctx context.Context, params SeekParams) error {
	if h == nil || h.c == nil {
		return errors.New("http commander not available")
	}
	h.logger.Info("seek_create", zap.String("seek", params.String()))
	return h.c.CreateSeek(ctx, params)
}

type dryRunCommander struct {
	logger *zap.Logger
}

func (d *dryRunCommander) SubmitMove(_ context.Context, gameID, move string) error {
	d.logger.Info("command_dryrun", zap.String("type", "move"), zap.String("game_id", gameID), zap.String("move", move))
	return nil
}

func (d *dryRunCommander) CreateSeek(_ context.Context, params SeekParams) error {
	d.logger.Info("command_dryrun", zap.String("type", "seek"), zap.String("seek", params.String()))
	return nil
}
