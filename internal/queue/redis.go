package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKey  = "submissions"
	redisPollTimeout = 5 * time.Second
)

// Redis is a queue on a single Redis list. Intake pushes with LPUSH and
// workers block on BRPOP, so ids come out in arrival order.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(ctx context.Context, addr, password, key string) (*Redis, error) {
	if key == "" {
		key = defaultRedisKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Redis{client: client, key: key}, nil
}

func (q *Redis) Push(ctx context.Context, id int64) error {
	if err := q.client.LPush(ctx, q.key, id).Err(); err != nil {
		return fmt.Errorf("push submission %d: %w", id, err)
	}
	return nil
}

func (q *Redis) Pop(ctx context.Context) (int64, bool, error) {
	vals, err := q.client.BRPop(ctx, redisPollTimeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("pop submission: %w", err)
	}
	// BRPOP returns [key, value].
	id, err := strconv.ParseInt(vals[1], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed queue message %q: %w", vals[1], err)
	}
	return id, true, nil
}

func (q *Redis) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Redis) Close() error {
	return q.client.Close()
}
