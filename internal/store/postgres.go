package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/programme-lv/judge/internal/subm"
)

const submissionColumns = `id, source_code, language_id, stdin, expected_output,
	status, stdout, stderr, compile_output, message, time, memory,
	time_limit_ms, mem_limit_kib, created_at, updated_at`

// Postgres implements Store on a submissions table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects via the pgx stdlib driver and verifies the
// connection before returning.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) GetByID(ctx context.Context, id int64) (*subm.Submission, error) {
	var s subm.Submission
	err := p.db.GetContext(ctx, &s,
		"SELECT "+submissionColumns+" FROM submissions WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select submission %d: %w", id, err)
	}
	return &s, nil
}

// Claim uses a conditional UPDATE with RETURNING so claiming and reading
// the row is one round trip and one atomic step. A row already claimed by
// another worker matches zero rows and yields ErrNotClaimed.
func (p *Postgres) Claim(ctx context.Context, id int64) (*subm.Submission, error) {
	var s subm.Submission
	err := p.db.GetContext(ctx, &s, `
		UPDATE submissions
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+submissionColumns,
		subm.StatusProcessing, id, subm.StatusInQueue)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := p.GetByID(ctx, id); errors.Is(getErr, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrNotClaimed
	}
	if err != nil {
		return nil, fmt.Errorf("claim submission %d: %w", id, err)
	}
	return &s, nil
}

func (p *Postgres) SaveResult(ctx context.Context, id int64, res subm.Result) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE submissions
		SET status = $1, stdout = $2, stderr = $3, compile_output = $4,
			message = $5, time = $6, memory = $7, updated_at = now()
		WHERE id = $8`,
		res.Status,
		nullIfEmpty(res.Stdout),
		nullIfEmpty(res.Stderr),
		nullIfEmpty(res.CompileOutput),
		nullIfEmpty(res.Message),
		res.TimeSec, res.MemoryKiB, id)
	if err != nil {
		return fmt.Errorf("save result for submission %d: %w", id, err)
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, s *subm.Submission) (int64, error) {
	var id int64
	err := p.db.GetContext(ctx, &id, `
		INSERT INTO submissions
			(source_code, language_id, stdin, expected_output, status,
			 time_limit_ms, mem_limit_kib, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id`,
		s.SourceCode, s.LanguageID, s.Stdin, s.ExpectedOutput,
		subm.StatusInQueue, s.TimeLimitMs, s.MemLimitKiB)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return id, nil
}

func (p *Postgres) RequeueStale(ctx context.Context, age time.Duration) ([]int64, error) {
	var ids []int64
	err := p.db.SelectContext(ctx, &ids, `
		UPDATE submissions
		SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < now() - $3::interval
		RETURNING id`,
		subm.StatusInQueue, subm.StatusProcessing,
		fmt.Sprintf("%d seconds", int64(age.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("requeue stale submissions: %w", err)
	}
	return ids, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
