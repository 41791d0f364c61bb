// Package store persists submissions. The claim operation is the
// concurrency primitive the whole worker fleet relies on: it flips a row
// from queued to processing atomically, so a queue message delivered twice
// evaluates at most once.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/programme-lv/judge/internal/subm"
)

// ErrNotFound is returned when no submission row has the given id.
var ErrNotFound = errors.New("submission not found")

// ErrNotClaimed is returned by Claim when the row exists but is no longer
// in queue. The caller must treat this as a duplicate delivery and move on.
var ErrNotClaimed = errors.New("submission not claimable")

type Store interface {
	// GetByID fetches one submission row.
	GetByID(ctx context.Context, id int64) (*subm.Submission, error)

	// Claim atomically moves the submission from queued to processing and
	// returns the claimed row. ErrNotClaimed means another worker got there
	// first or the row was never queued.
	Claim(ctx context.Context, id int64) (*subm.Submission, error)

	// SaveResult writes the terminal verdict for a submission.
	SaveResult(ctx context.Context, id int64, res subm.Result) error

	// Insert stores a fresh queued submission and returns its id.
	Insert(ctx context.Context, s *subm.Submission) (int64, error)

	// RequeueStale flips processing rows older than age back to queued and
	// returns their ids so the caller can push them onto the queue again.
	// Meant for operator use after a worker crash.
	RequeueStale(ctx context.Context, age time.Duration) ([]int64, error)

	Ping(ctx context.Context) error
}
