package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-board-stream/internal/boardevent"
	"github.com/park285/cheese-board-stream/internal/boardstate"
	"github.com/park285/cheese-board-stream/internal/lichessfast"
	"github.com/park285/cheese-board-stream/internal/retry"
	"github.com/park285/cheese-board-stream/internal/streamsup"
)

// Commander sends one-shot commands to the remote service.
type Commander interface {
	SubmitMove(ctx context.Context, gameID, move string) error
	CreateSeek(ctx context.Context, params lichessfast.SeekParams) error
}

// MoveValidator pre-checks move against the position reached by moves.
type MoveValidator interface {
	Validate(moves []string, move string) error
}

type Config struct {
	// Self is the user id the game must belong to.
	Self       string
	Credential string
	Transport  streamsup.Transport
	Commander  Commander
	// Validator is optional; without it legality is left to the remote.
	Validator MoveValidator
	Policy    retry.Policy
	Schedule  streamsup.Scheduler
	Logger    *zap.Logger
}

// View is an immutable picture of the session published after every change.
type View struct {
	SessionID string
	Snapshot  boardstate.Snapshot
	Events    streamsup.State
	Game      streamsup.State
	Failure   error
	Ended     bool
}

type ChannelStates struct {
	Events streamsup.State `json:"events"`
	Game   streamsup.State `json:"game"`
}

// Session drives one game: it waits on the event stream for a game to start,
// then follows that game's stream until the game ends or the connection is
// lost for good.
type Session struct {
	id         string
	self       string
	credential string
	commander  Commander
	validator  MoveValidator
	logger     *zap.Logger

	loop   *streamsup.Loop
	events *streamsup.Channel
	game   *streamsup.Channel

	// owned by the loop goroutine
	snap    boardstate.Snapshot
	gameID  string
	started bool
	ended   bool
	failure error

	view     atomic.Pointer[View]
	done     chan struct{}
	doneOnce sync.Once

	snapshotCbs callbacks[SnapshotCallback]
	sideCbs     callbacks[SideEventCallback]
	stateCbs    callbacks[ChannelStateCallback]
	failureCbs  callbacks[FailureCallback]
}

func New(cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.Self) == "" {
		return nil, errors.New("session: self identity is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("session: transport is required")
	}
	if cfg.Commander == nil {
		return nil, errors.New("session: commander is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	id := uuid.NewString()
	s := &Session{
		id:         id,
		self:       strings.TrimSpace(cfg.Self),
		credential: cfg.Credential,
		commander:  cfg.Commander,
		validator:  cfg.Validator,
		logger:     cfg.Logger.With(zap.String("session_id", id)),
		loop:       streamsup.NewLoop(128),
		snap:       boardstate.Empty(),
		done:       make(chan struct{}),
	}

	var err error
	s.events, err = streamsup.NewChannel(streamsup.Config{
		Name:      "events",
		Transport: cfg.Transport,
		Policy:    cfg.Policy,
		Loop:      s.loop,
		Schedule:  cfg.Schedule,
		OnLine:    s.handleEventLine,
		OnState:   s.handleChannelState,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("event channel: %w", err)
	}
	s.game, err = streamsup.NewChannel(streamsup.Config{
		Name:      "game",
		Transport: cfg.Transport,
		Policy:    cfg.Policy,
		Loop:      s.loop,
		Schedule:  cfg.Schedule,
		OnLine:    s.handleGameLine,
		OnState:   s.handleChannelState,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("game channel: %w", err)
	}

	s.publish()
	go s.loop.Run()
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Start opens the event stream. A session can be started once.
func (s *Session) Start(ctx context.Context) error {
	var err error
	callErr := s.loop.Call(ctx, func() {
		switch {
		case s.ended:
			err = ErrSessionEnded
		case s.started:
			err = ErrAlreadyStarted
		default:
			s.started = true
			s.logger.Info("session_start", zap.String("self", s.self))
			s.events.Open(streamsup.Target{Name: "events", Path: lichessfast.EventStreamPath}, s.credential)
		}
	})
	if callErr != nil {
		if errors.Is(callErr, streamsup.ErrLoopStopped) {
			return ErrSessionEnded
		}
		return callErr
	}
	return err
}

// Close tears the session down: both channels are closed and pending
// retries are cancelled. When ctx ends while a callback still holds the loop,
// Close returns ctx's error and the teardown runs as soon as the loop exits.
// It must not be called from inside a session callback.
func (s *Session) Close(ctx context.Context) error {
	err := s.loop.Call(ctx, func() { s.teardown("closed") })
	s.loop.Stop()
	if err == nil || errors.Is(err, streamsup.ErrLoopStopped) {
		return nil
	}
	go func() {
		// the loop no longer runs anything once Done is closed
		<-s.loop.Done()
		s.teardown("closed")
	}()
	return err
}

// Done is closed once the session has ended for any reason.
func (s *Session) Done() <-chan struct{} { return s.done }

// View returns the latest published picture of the session.
func (s *Session) View() View { return *s.view.Load() }

// Snapshot returns a copy of the current game snapshot.
func (s *Session) Snapshot() boardstate.Snapshot { return s.view.Load().Snapshot.Clone() }

func (s *Session) ChannelStates() ChannelStates {
	v := s.view.Load()
	return ChannelStates{Events: v.Events, Game: v.Game}
}

// Failure is the error that ended the session, or nil.
func (s *Session) Failure() error { return s.view.Load().Failure }

// SubmitMove sends move for the active game. Local rejections never reach
// the network; a successful submission leaves the snapshot untouched until
// the resulting game state arrives.
func (s *Session) SubmitMove(ctx context.Context, move string) error {
	move = strings.TrimSpace(move)
	v := s.view.Load()
	snap := v.Snapshot
	if err := checkMove(v); err != nil {
		return err
	}
	if move == "" {
		return fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	if s.validator != nil {
		if err := s.validator.Validate(snap.Moves, move); err != nil {
			return fmt.Errorf("%w: %v", ErrIllegalMove, err)
		}
	}
	if err := s.commander.SubmitMove(ctx, snap.GameID, move); err != nil {
		s.logger.Warn("move_submit_failed", zap.String("game_id", snap.GameID), zap.String("move", move), zap.Error(err))
		return err
	}
	s.logger.Info("move_submitted", zap.String("game_id", snap.GameID), zap.String("move", move))
	return nil
}

// CheckMove reports whether a move could be submitted right now, returning
// ErrNoActiveGame or ErrNotYourTurn otherwise.
func (s *Session) CheckMove() error { return checkMove(s.view.Load()) }

func checkMove(v *View) error {
	switch {
	case v.Snapshot.GameID == "" || v.Snapshot.Terminal() || v.Game != streamsup.StateStreaming:
		return ErrNoActiveGame
	case !v.Snapshot.IsMyTurn:
		return ErrNotYourTurn
	}
	return nil
}

// CreateSeek asks the remote to pair the user into a new game.
func (s *Session) CreateSeek(ctx context.Context, params lichessfast.SeekParams) error {
	v := s.view.Load()
	if v.Ended {
		return ErrSessionEnded
	}
	if v.Snapshot.GameID != "" && !v.Snapshot.Terminal() {
		return ErrGameInProgress
	}
	return s.commander.CreateSeek(ctx, params)
}

func (s *Session) handleEventLine(line string) {
	if s.ended {
		return
	}
	ev, ok := s.classify("events", line)
	if !ok {
		return
	}
	if start, isStart := ev.(boardevent.GameStart); isStart {
		s.startGame(start)
		return
	}
	s.emitSideEvent(ev)
}

func (s *Session) handleGameLine(line string) {
	if s.ended {
		return
	}
	ev, ok := s.classify("game", line)
	if !ok {
		return
	}
	switch ev.(type) {
	case boardevent.GameFull, boardevent.GameState, boardevent.GameFinish:
		s.apply(ev)
	default:
		s.emitSideEvent(ev)
	}
}

func (s *Session) classify(channel, line string) (boardevent.Event, bool) {
	res := boardevent.Classify(line)
	switch res.Outcome {
	case boardevent.OutcomeEvent:
		return res.Event, true
	case boardevent.OutcomeParseError:
		s.logger.Warn("stream_parse_error",
			zap.String("channel", channel),
			zap.String("raw", truncate(res.Raw, 256)),
			zap.Error(res.Err),
		)
	}
	return nil, false
}

func (s *Session) startGame(e boardevent.GameStart) {
	id := strings.TrimSpace(e.GameID)
	if id == "" {
		s.logger.Warn("game_start_without_id")
		return
	}
	if s.gameID != "" {
		s.logger.Info("game_start_ignored", zap.String("game_id", id), zap.String("active_game_id", s.gameID))
		return
	}
	s.gameID = id
	s.snap = boardstate.Snapshot{
		GameID:         id,
		OpponentName:   e.OpponentName,
		OpponentRating: e.OpponentRating,
		Status:         boardstate.StatusCreated,
		Moves:          []string{},
	}
	s.logger.Info("game_start", zap.String("game_id", id), zap.String("opponent", e.OpponentName))

	s.emitSideEvent(e)
	s.events.Close()
	s.game.Open(streamsup.Target{Name: "game", Path: lichessfast.GameStreamPath(id)}, s.credential)
	s.publish()
	s.emitSnapshot(s.snap)
}

func (s *Session) apply(ev boardevent.Event) {
	next, err := boardstate.Reduce(s.snap, ev, s.self)

	var mismatch *boardstate.IdentityMismatchError
	var outOfOrder *boardstate.OutOfOrderStateError
	switch {
	case errors.As(err, &mismatch):
		s.logger.Error("game_identity_mismatch",
			zap.String("game_id", mismatch.GameID),
			zap.String("white", mismatch.WhiteID),
			zap.String("black", mismatch.BlackID),
		)
		s.snap = s.snap.Invalidated()
		s.publish()
		s.emitSnapshot(s.snap)
		s.fail(err)
		return
	case errors.As(err, &outOfOrder):
		s.logger.Warn("state_drop_out_of_order", zap.Int("have", outOfOrder.Have), zap.Int("received", outOfOrder.Received))
		return
	case errors.Is(err, boardstate.ErrSnapshotTerminal):
		s.logger.Debug("state_drop_terminal", zap.String("kind", string(ev.Kind())))
		return
	case err != nil:
		s.logger.Warn("state_reduce_error", zap.Error(err))
		return
	}

	s.snap = next
	s.publish()
	s.emitSnapshot(next)

	if next.Terminal() {
		s.logger.Info("game_finished",
			zap.String("game_id", next.GameID),
			zap.String("substatus", next.Substatus),
			zap.String("winner", string(next.Winner)),
			zap.Int("moves", next.MoveCount()),
		)
		s.teardown("game_finished")
	}
}

func (s *Session) handleChannelState(change streamsup.StateChange) {
	// handlers fire while the channels are still being built
	if s.events == nil || s.game == nil {
		return
	}
	s.publish()
	if s.ended {
		return
	}
	s.emitChannelState(change)
	if change.To == streamsup.StateGivenUp {
		err := change.Err
		if err == nil {
			err = streamsup.ErrRetryBudgetExhausted
		}
		s.fail(fmt.Errorf("%s channel: %w", change.Channel, err))
	}
}

// fail moves the session into its permanent failed state.
func (s *Session) fail(err error) {
	if s.failure != nil {
		return
	}
	s.failure = err
	s.logger.Error("session_failed", zap.Error(err))
	s.publish()
	s.emitFailure(err)
	s.teardown("failed")
}

func (s *Session) teardown(reason string) {
	if s.ended {
		return
	}
	s.ended = true
	s.events.Close()
	s.game.Close()
	s.publish()
	s.doneOnce.Do(func() { close(s.done) })
	s.logger.Info("session_ended", zap.String("reason", reason), zap.String("game_id", s.gameID))
}

func (s *Session) publish() {
	s.view.Store(&View{
		SessionID: s.id,
		Snapshot:  s.snap.Clone(),
		Events:    s.events.State(),
		Game:      s.game.State(),
		Failure:   s.failure,
		Ended:     s.ended,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
