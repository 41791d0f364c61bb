// Package worker is the consume loop: pop an id, claim the row, evaluate,
// write the verdict back. Several workers share one queue and one store;
// the claim step is what keeps them from stepping on each other.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/programme-lv/judge/internal/events"
	"github.com/programme-lv/judge/internal/judge"
	"github.com/programme-lv/judge/internal/queue"
	"github.com/programme-lv/judge/internal/store"
	"github.com/programme-lv/judge/internal/subm"
)

// errBackoff is how long the loop sleeps after a queue or store error, so
// a dead dependency does not turn the loop into a busy spin.
const errBackoff = 5 * time.Second

type Worker struct {
	queue  queue.Queue
	store  store.Store
	judge  *judge.Judge
	events *events.Publisher
	log    *slog.Logger

	inFlight *xsync.MapOf[int64, time.Time]
}

func New(q queue.Queue, st store.Store, j *judge.Judge, ev *events.Publisher, log *slog.Logger) *Worker {
	return &Worker{
		queue:    q,
		store:    st,
		judge:    j,
		events:   ev,
		log:      log,
		inFlight: xsync.NewMapOf[int64, time.Time](),
	}
}

// Run consumes the queue until ctx is cancelled. It returns nil on a clean
// shutdown; dependency errors are logged and retried, never returned.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started")
	for {
		if err := ctx.Err(); err != nil {
			w.log.Info("worker stopped")
			return nil
		}
		id, ok, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("worker stopped")
				return nil
			}
			w.log.Error("pop from queue", "error", err)
			sleep(ctx, errBackoff)
			continue
		}
		if !ok {
			continue
		}
		w.process(ctx, id)
	}
}

func (w *Worker) process(ctx context.Context, id int64) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("processing panicked", "submission", id, "panic", r)
		}
	}()

	s, err := w.store.Claim(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotClaimed):
		// Duplicate delivery or another worker won the claim.
		w.log.Debug("submission already claimed", "submission", id)
		return
	case errors.Is(err, store.ErrNotFound):
		w.log.Warn("queued submission has no row", "submission", id)
		return
	case err != nil:
		w.log.Error("claim submission", "submission", id, "error", err)
		sleep(ctx, errBackoff)
		return
	}

	w.inFlight.Store(id, time.Now())
	defer w.inFlight.Delete(id)

	w.events.Publish(id, subm.StatusProcessing)
	w.log.Info("evaluating submission", "submission", id, "language", s.LanguageID)

	start := time.Now()
	res := w.judge.Evaluate(ctx, s)

	if err := w.store.SaveResult(ctx, id, res); err != nil {
		// The row stays in processing; the operator requeues it.
		w.log.Error("save result", "submission", id, "error", err)
		return
	}
	w.events.Publish(id, res.Status)
	w.log.Info("submission evaluated",
		"submission", id,
		"status", res.Status,
		"took", time.Since(start).Round(time.Millisecond),
	)
}

// InFlight reports how many submissions this worker is evaluating now.
func (w *Worker) InFlight() int {
	return w.inFlight.Size()
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
