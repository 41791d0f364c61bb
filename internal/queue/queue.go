// Package queue moves submission ids from intake to workers. The queue
// carries only the id; all submission state lives in the store, so a
// message delivered twice or lost after the claim is harmless.
package queue

import (
	"context"
	"fmt"
)

type Queue interface {
	// Push enqueues a submission id.
	Push(ctx context.Context, id int64) error

	// Pop blocks for at most the implementation's poll interval and returns
	// the next id. ok is false when the poll came back empty; the caller
	// just polls again.
	Pop(ctx context.Context) (id int64, ok bool, err error)

	Ping(ctx context.Context) error
	Close() error
}

// Config selects and tunes a queue implementation.
type Config struct {
	Kind string // "redis" or "sqs"

	RedisAddr     string
	RedisPassword string
	RedisKey      string

	SQSQueueURL string
}

// New builds the configured queue.
func New(ctx context.Context, cfg Config) (Queue, error) {
	switch cfg.Kind {
	case "redis", "":
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisKey)
	case "sqs":
		return NewSQS(ctx, cfg.SQSQueueURL)
	default:
		return nil, fmt.Errorf("unknown queue kind: %q", cfg.Kind)
	}
}
