package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/programme-lv/judge/internal/queue"
	"github.com/programme-lv/judge/internal/store"
)

// Requeue recovers submissions stuck in processing: rows older than age
// are flipped back to queued and their ids pushed onto the queue, since
// workers only act on queue messages. Returns how many were recovered.
func Requeue(ctx context.Context, st store.Store, q queue.Queue, age time.Duration) (int, error) {
	ids, err := st.RequeueStale(ctx, age)
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := q.Push(ctx, id); err != nil {
			return i, fmt.Errorf("requeued %d of %d rows, push submission %d: %w", i, len(ids), id, err)
		}
	}
	return len(ids), nil
}
