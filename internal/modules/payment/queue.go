// README: Durable local write queue backed by a Redis list.
package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultQueueKey = "gavra:payment_write_queue"

// RedisQueue keeps failed writes on the device-local Redis instance so they
// survive app restarts until the resync loop lands them.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: defaultQueueKey}
}

func (q *RedisQueue) Enqueue(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal queue entry: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

func (q *RedisQueue) List(ctx context.Context, limit int) ([]Entry, error) {
	raws, err := q.rdb.LRange(ctx, q.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshal queue entry: %w", err)
		}
		e.raw = []byte(raw)
		entries = append(entries, e)
	}
	return entries, nil
}

// Remove deletes the exact wire bytes of the entry. Entry IDs are unique so
// at most one list element matches.
func (q *RedisQueue) Remove(ctx context.Context, e Entry) error {
	raw := e.raw
	if raw == nil {
		var err error
		raw, err = json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal queue entry: %w", err)
		}
	}
	if err := q.rdb.LRem(ctx, q.key, 1, raw).Err(); err != nil {
		return fmt.Errorf("lrem: %w", err)
	}
	return nil
}
