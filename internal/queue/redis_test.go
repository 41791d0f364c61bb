package queue_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/programme-lv/judge/internal/queue"
)

func newTestQueue(t *testing.T) (*queue.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	q, err := queue.NewRedis(context.Background(), mr.Addr(), "", "test-submissions")
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q, mr
}

func TestRedisPushPop(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, 42))
	require.NoError(t, q.Push(ctx, 43))

	id, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(42), id)

	id, ok, err = q.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(43), id)
}

func TestRedisMalformedMessage(t *testing.T) {
	q, mr := newTestQueue(t)

	_, err := mr.Lpush("test-submissions", "not-a-number")
	require.NoError(t, err)

	_, _, err = q.Pop(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not-a-number")
}

func TestRedisPing(t *testing.T) {
	q, mr := newTestQueue(t)

	require.NoError(t, q.Ping(context.Background()))

	mr.Close()
	require.Error(t, q.Ping(context.Background()))
}
