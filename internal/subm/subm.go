package subm

import "time"

// Submission is one row of the submissions table. The input columns are
// written once by the intake API; the worker only ever touches status and
// the result columns.
type Submission struct {
	ID             int64      `db:"id"`
	SourceCode     string     `db:"source_code"`
	LanguageID     int        `db:"language_id"`
	Stdin          string     `db:"stdin"`
	ExpectedOutput *string    `db:"expected_output"`
	Status         Status     `db:"status"`
	Stdout         *string    `db:"stdout"`
	Stderr         *string    `db:"stderr"`
	CompileOutput  *string    `db:"compile_output"`
	Message        *string    `db:"message"`
	TimeSec        *float64   `db:"time"`
	MemoryKiB      *int64     `db:"memory"`
	TimeLimitMs    int        `db:"time_limit_ms"`
	MemLimitKiB    int        `db:"mem_limit_kib"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at"`
}

// Result is everything the worker writes back once a submission reaches a
// terminal status.
type Result struct {
	Status        Status
	Stdout        string
	Stderr        string
	CompileOutput string
	Message       string
	TimeSec       float64
	MemoryKiB     int64
}
