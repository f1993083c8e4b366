package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-board-stream/pkg/boarddto"
)

const (
	snapshotTTL = 24 * time.Hour

	keyCurrent = "board:current"
	// UpdatesChannel carries the id of every game whose snapshot changed.
	UpdatesChannel = "board:updates"
)

func snapshotKey(gameID string) string { return "board:snapshot:" + strings.TrimSpace(gameID) }

// Mirror copies live snapshots into Redis for other local readers.
// It is a display mirror; entries expire and nothing is replayed from it.
type Mirror struct {
	rdb    *redis.Client
	logger *zap.Logger

	pending chan *boarddto.Snapshot
	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// Open connects to REDIS_URL style addresses (redis:// or rediss://).
func Open(redisURL string, logger *zap.Logger) (*Mirror, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, logger), nil
}

func New(rdb *redis.Client, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		rdb:     rdb,
		logger:  logger,
		pending: make(chan *boarddto.Snapshot, 1),
		stopCh:  make(chan struct{}),
	}
}

// Publish stores snap, points the current key at it and notifies subscribers.
func (m *Mirror) Publish(ctx context.Context, snap *boarddto.Snapshot) error {
	if snap == nil || strings.TrimSpace(snap.GameID) == "" {
		return errors.New("mirror: snapshot without game id")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, snapshotKey(snap.GameID), raw, snapshotTTL)
		p.Set(ctx, keyCurrent, snap.GameID, snapshotTTL)
		p.Publish(ctx, UpdatesChannel, snap.GameID)
		return nil
	})
	return err
}

// Load returns the mirrored snapshot of gameID, or nil when absent.
func (m *Mirror) Load(ctx context.Context, gameID string) (*boarddto.Snapshot, error) {
	raw, err := m.rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s boarddto.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Current loads the snapshot of the most recently published game.
func (m *Mirror) Current(ctx context.Context) (*boarddto.Snapshot, error) {
	id, err := m.rdb.Get(ctx, keyCurrent).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.Load(ctx, id)
}

// Watch calls fn with each mirrored snapshot until ctx ends.
func (m *Mirror) Watch(ctx context.Context, fn func(*boarddto.Snapshot)) error {
	sub := m.rdb.Subscribe(ctx, UpdatesChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			snap, err := m.Load(ctx, msg.Payload)
			if err != nil {
				m.logger.Warn("mirror_load_failed", zap.String("game_id", msg.Payload), zap.Error(err))
				continue
			}
			if snap != nil {
				fn(snap)
			}
		}
	}
}

// Enqueue hands snap to the background writer without blocking. Only the
// latest pending snapshot is kept.
func (m *Mirror) Enqueue(snap *boarddto.Snapshot) {
	if snap == nil {
		return
	}
	for {
		select {
		case m.pending <- snap:
			return
		default:
		}
		select {
		case <-m.pending:
		default:
		}
	}
}

// Start runs the background writer until Close.
func (m *Mirror) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.stopCh:
				m.flush()
				return
			case snap := <-m.pending:
				m.write(snap)
			}
		}
	}()
}

func (m *Mirror) flush() {
	select {
	case snap := <-m.pending:
		m.write(snap)
	default:
	}
}

func (m *Mirror) write(snap *boarddto.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.Publish(ctx, snap); err != nil {
		m.logger.Warn("mirror_publish_failed", zap.String("game_id", snap.GameID), zap.Error(err))
		return
	}
	m.logger.Debug("mirror_published", zap.String("game_id", snap.GameID), zap.Int("moves", snap.MoveCount))
}

// Close stops the writer after flushing and closes the client.
func (m *Mirror) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	m.stopped.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	return m.rdb.Close()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "redis://") && !strings.HasPrefix(raw, "rediss://") {
		return nil, fmt.Errorf("unsupported redis url: %q", raw)
	}
	return redis.ParseURL(raw)
}
