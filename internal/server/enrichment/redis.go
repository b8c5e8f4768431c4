package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PendingKey    = "opacity:enrich:pending"
	ProcessingKey = "opacity:enrich:processing"

	defaultPollInterval = time.Second
)

// NewRedisClient parses a redis:// or rediss:// URL and checks the
// connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisQueue keeps JSON-encoded jobs in a pending list. Dequeue moves a job
// to a processing list atomically, and Ack removes it from there, so a job
// taken by a worker that died is found again by Recover.
type RedisQueue struct {
	client       redis.Cmdable
	pollInterval time.Duration
}

func NewRedisQueue(client redis.Cmdable) *RedisQueue {
	return &RedisQueue{client: client, pollInterval: defaultPollInterval}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, PendingKey, b).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		raw, err := q.client.LMove(ctx, PendingKey, ProcessingKey, "RIGHT", "LEFT").Result()
		switch {
		case err == nil:
			job := &Job{}
			if err := json.Unmarshal([]byte(raw), job); err != nil {
				// Unreadable payloads would come back on every Recover.
				_ = q.client.LRem(ctx, ProcessingKey, 1, raw).Err()
				return nil, fmt.Errorf("decode job: %w", err)
			}
			job.raw = raw
			return job, nil
		case !errors.Is(err, redis.Nil):
			return nil, fmt.Errorf("redis lmove: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *RedisQueue) Ack(ctx context.Context, job *Job) error {
	if job.raw == "" {
		return nil
	}
	if err := q.client.LRem(ctx, ProcessingKey, 1, job.raw).Err(); err != nil {
		return fmt.Errorf("redis lrem: %w", err)
	}
	return nil
}

func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, ProcessingKey, PendingKey, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("redis lmove: %w", err)
		}
		n++
	}
}
