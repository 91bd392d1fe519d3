package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const payloadField = "payload"

// RedisLog implements Log over Redis Streams. Entry IDs are the Redis
// stream IDs, which XREAD treats as exclusive start positions.
type RedisLog struct {
	client *redis.Client

	// MaxLen caps each stream approximately via XADD MAXLEN ~. Zero
	// disables trimming.
	MaxLen int64
}

// NewRedisLog creates a Log over the given Redis client.
func NewRedisLog(client *redis.Client) *RedisLog {
	return &RedisLog{client: client, MaxLen: 100_000}
}

func (l *RedisLog) Append(ctx context.Context, stream string, payload []byte) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{payloadField: payload},
	}
	if l.MaxLen > 0 {
		args.MaxLen = l.MaxLen
		args.Approx = true
	}
	id, err := l.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

func (l *RedisLog) Read(ctx context.Context, stream, after string, max int, block time.Duration) ([]Entry, error) {
	if after == "" {
		after = "0"
	}
	if block <= 0 {
		// Negative means no BLOCK argument at all.
		block = -1
	}

	streams, err := l.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, after},
		Count:   int64(max),
		Block:   block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xread %s: %w", stream, err)
	}

	var entries []Entry
	for _, s := range streams {
		for _, msg := range s.Messages {
			payload, _ := msg.Values[payloadField].(string)
			entries = append(entries, Entry{ID: msg.ID, Payload: []byte(payload)})
		}
	}
	return entries, nil
}

func (l *RedisLog) Close() error { return nil }

// RedisCursorStore persists consumer cursors as plain keys.
type RedisCursorStore struct {
	client *redis.Client
}

// NewRedisCursorStore creates a cursor store over the given Redis client.
func NewRedisCursorStore(client *redis.Client) *RedisCursorStore {
	return &RedisCursorStore{client: client}
}

func cursorKey(consumer, stream string) string {
	return fmt.Sprintf("vigil:cursor:%s:%s", consumer, stream)
}

func (s *RedisCursorStore) Get(ctx context.Context, consumer, stream string) (string, error) {
	cursor, err := s.client.Get(ctx, cursorKey(consumer, stream)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get cursor: %w", err)
	}
	return cursor, nil
}

func (s *RedisCursorStore) Set(ctx context.Context, consumer, stream, cursor string) error {
	if err := s.client.Set(ctx, cursorKey(consumer, stream), cursor, 0).Err(); err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
