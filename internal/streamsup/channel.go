package streamsup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-board-stream/internal/retry"
)

// LineHandler receives every line read while the channel is streaming.
type LineHandler func(line string)

// StateHandler observes channel transitions.
type StateHandler func(change StateChange)

type Config struct {
	Name      string
	Transport Transport
	Policy    retry.Policy
	Loop      *Loop
	Schedule  Scheduler
	OnLine    LineHandler
	OnState   StateHandler
	Logger    *zap.Logger
}

// Channel supervises one logical streaming connection.
//
// All exported methods must be called on the owning Loop. Transport work runs
// on helper goroutines that post their results back to the loop tagged with
// the generation they were started under; results from an older generation
// are discarded.
type Channel struct {
	name      string
	transport Transport
	policy    retry.Policy
	loop      *Loop
	schedule  Scheduler
	onLine    LineHandler
	onState   StateHandler
	logger    *zap.Logger

	state      State
	gen        uint64
	failures   int
	target     Target
	credential string

	stream Stream
	ctx    context.Context
	cancel context.CancelFunc
	timer  Timer
}

func NewChannel(cfg Config) (*Channel, error) {
	if cfg.Transport == nil {
		return nil, errors.New("streamsup: transport is required")
	}
	if cfg.Loop == nil {
		return nil, errors.New("streamsup: loop is required")
	}
	if cfg.Schedule == nil {
		cfg.Schedule = AfterFunc
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "stream"
	}
	return &Channel{
		name:      cfg.Name,
		transport: cfg.Transport,
		policy:    cfg.Policy,
		loop:      cfg.Loop,
		schedule:  cfg.Schedule,
		onLine:    cfg.OnLine,
		onState:   cfg.OnState,
		logger:    cfg.Logger.With(zap.String("channel", cfg.Name)),
		state:     StateIdle,
	}, nil
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) State() State { return c.state }

// Failures is the current retry counter.
func (c *Channel) Failures() int { return c.failures }

func (c *Channel) Target() Target { return c.target }

// Open starts a fresh connection to target, tearing down any previous one.
func (c *Channel) Open(target Target, credential string) {
	c.teardown()
	c.target = target
	c.credential = credential
	c.failures = 0
	c.connect()
}

// Close stops the channel: in-flight opens become no-ops, the retry timer is
// cancelled and the stream is closed. A channel that gave up stays GivenUp.
func (c *Channel) Close() {
	c.gen++
	c.teardown()
	if c.state != StateIdle && c.state != StateGivenUp {
		c.setState(StateIdle, nil)
		c.logger.Info("stream_closed", zap.String("target", c.target.Path))
	}
}

func (c *Channel) connect() {
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.ctx, c.cancel = ctx, cancel
	c.setState(StateConnecting, nil)

	target, credential := c.target, c.credential
	attemptID := uuid.NewString()
	c.logger.Info("stream_connecting",
		zap.String("target", target.Path),
		zap.String("attempt_id", attemptID),
		zap.Int("failures", c.failures),
	)
	go func() {
		stream, err := c.transport.Open(ctx, target, credential)
		posted := c.loop.Post(func() { c.onOpened(gen, attemptID, stream, err) })
		if !posted && stream != nil {
			_ = stream.Close()
		}
	}()
}

func (c *Channel) onOpened(gen uint64, attemptID string, stream Stream, err error) {
	if gen != c.gen {
		if stream != nil {
			_ = stream.Close()
		}
		c.logger.Debug("stream_open_stale", zap.String("attempt_id", attemptID))
		return
	}
	if err != nil {
		c.logger.Warn("stream_open_error", zap.String("attempt_id", attemptID), zap.Error(err))
		c.fail(err)
		return
	}
	c.stream = stream
	c.failures = 0
	c.setState(StateStreaming, nil)
	c.logger.Info("stream_open", zap.String("target", c.target.Path), zap.String("attempt_id", attemptID))

	// the reader shares the attempt context, so closeTransport unblocks it
	go c.read(c.ctx, gen, stream)
}

func (c *Channel) read(ctx context.Context, gen uint64, stream Stream) {
	for {
		line, err := stream.ReadLine(ctx)
		if err != nil {
			c.loop.Post(func() { c.onEnded(gen, err) })
			return
		}
		if !c.loop.Post(func() { c.onLineRead(gen, line) }) {
			return
		}
	}
}

func (c *Channel) onLineRead(gen uint64, line string) {
	if gen != c.gen || c.state != StateStreaming {
		return
	}
	if c.onLine != nil {
		c.onLine(line)
	}
}

func (c *Channel) onEnded(gen uint64, err error) {
	if gen != c.gen {
		return
	}
	if errors.Is(err, io.EOF) {
		c.logger.Info("stream_eof", zap.String("target", c.target.Path))
		err = fmt.Errorf("remote closed stream: %w", err)
	} else {
		c.logger.Warn("stream_read_error", zap.String("target", c.target.Path), zap.Error(err))
	}
	c.fail(err)
}

// fail records one transport failure and asks the policy what to do next.
func (c *Channel) fail(cause error) {
	c.closeTransport()
	c.failures++
	c.setState(StateDisconnected, cause)

	action := c.policy.NextAction(c.failures)
	if action.GiveUp {
		c.gen++
		c.logger.Error("stream_give_up", zap.String("target", c.target.Path), zap.Int("failures", c.failures), zap.Error(cause))
		c.setState(StateGivenUp, fmt.Errorf("%w after %d failures: %v", ErrRetryBudgetExhausted, c.failures, cause))
		return
	}

	gen := c.gen
	c.logger.Warn("stream_retry",
		zap.String("target", c.target.Path),
		zap.Int("attempt", c.failures),
		zap.Duration("delay", action.Delay),
	)
	c.timer = c.schedule(action.Delay, func() {
		c.loop.Post(func() { c.onRetryTimer(gen) })
	})
}

func (c *Channel) onRetryTimer(gen uint64) {
	if gen != c.gen || c.state != StateDisconnected {
		return
	}
	c.timer = nil
	c.connect()
}

func (c *Channel) teardown() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.closeTransport()
}

func (c *Channel) closeTransport() {
	if c.cancel != nil {
		c.cancel()
		c.ctx, c.cancel = nil, nil
	}
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
}

func (c *Channel) setState(to State, err error) {
	from := c.state
	c.state = to
	if c.onState != nil {
		c.onState(StateChange{Channel: c.name, From: from, To: to, Attempt: c.failures, Err: err})
	}
}
