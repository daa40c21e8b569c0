package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"body-control/internal/can"
	"body-control/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Default list keys for the two bench receive FIFOs.
const (
	DefaultRx0Key = "can:rx0"
	DefaultRx1Key = "can:rx1"
)

// BRPOP timeout; short so a cancelled context is noticed quickly.
const popTimeout = time.Second

// RedisBus connects to the Redis instance a bench rig or gateway pushes
// received frames into. Frames are candump-style text entries on a list
// per receive FIFO, pushed with LPUSH and drained here with BRPOP.
type RedisBus struct {
	client *redis.Client
	logger *logger.Logger
}

func NewRedisBus(addr string, l *logger.Logger) *RedisBus {
	return &RedisBus{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		logger: l,
	}
}

func (b *RedisBus) Connect(ctx context.Context) error {
	b.logger.Infof("Attempting to connect to Redis at %s", b.client.Options().Addr)

	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	b.logger.Infof("Successfully connected to Redis")
	return nil
}

// Queue returns a receive FIFO draining the given list key.
func (b *RedisBus) Queue(key string) *RedisQueue {
	return &RedisQueue{client: b.client, key: key, logger: b.logger}
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

// RedisQueue implements can.RxQueue over one Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
	logger *logger.Logger
}

// Receive pops one entry. An empty list or an entry that does not parse as
// a frame reports can.ErrNoFrame.
func (q *RedisQueue) Receive(ctx context.Context) (can.Frame, error) {
	result, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return can.Frame{}, can.ErrNoFrame
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return can.Frame{}, ctxErr
		}
		return can.Frame{}, fmt.Errorf("error reading from %s list: %w", q.key, err)
	}

	// BRPOP returns [key, value]
	if len(result) < 2 {
		return can.Frame{}, can.ErrNoFrame
	}

	frame, err := can.ParseText(result[1])
	if err != nil {
		q.logger.Debugf("Discarding entry from %s: %v", q.key, err)
		return can.Frame{}, can.ErrNoFrame
	}
	return frame, nil
}

func (q *RedisQueue) String() string {
	return "redis:" + q.key
}

// Close is a no-op; the client is owned by RedisBus.
func (q *RedisQueue) Close() error {
	return nil
}
