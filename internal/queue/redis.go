package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Queue backed by a Redis list: Enqueue is RPUSH (append at
// the tail), Dequeue is BLPOP/LPOP (pop from the head), and Requeue is
// LPUSH (push back onto the head) so a requeued item is retried before
// newer arrivals — see spec.md §9's open question on LPUSH vs RPUSH.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue creates a RedisQueue named name against the given client.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

func (q *RedisQueue) Enqueue(ctx context.Context, item string) error {
	if err := q.client.RPush(ctx, q.name, item).Err(); err != nil {
		return fmt.Errorf("queue %s: enqueue: %w", q.name, err)
	}
	return nil
}

func (q *RedisQueue) Requeue(ctx context.Context, item string) error {
	if err := q.client.LPush(ctx, q.name, item).Err(); err != nil {
		return fmt.Errorf("queue %s: requeue: %w", q.name, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	if timeout <= 0 {
		value, err := q.client.LPop(ctx, q.name).Result()
		if err == redis.Nil {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("queue %s: dequeue: %w", q.name, err)
		}
		return value, true, nil
	}

	result, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("queue %s: dequeue: %w", q.name, err)
	}
	// BLPop returns [key, value].
	return result[1], true, nil
}

func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("queue %s: size: %w", q.name, err)
	}
	return n, nil
}
