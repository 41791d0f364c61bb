// Package sandbox executes one external program per call with enforced
// time and resource ceilings. It knows nothing about submissions or
// languages; callers prepare a working directory and pass a command.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultMaxOutputBytes caps captured stdout/stderr per stream. Output
// beyond the cap is dropped and a truncation marker is appended.
const DefaultMaxOutputBytes = 64 * 1024

const truncationMarker = "\n[output truncated]"

// Command is one program execution inside a working directory owned by the
// caller. The directory must be dedicated to a single submission; the
// runner may let the program write into it (compile outputs land there).
type Command struct {
	Dir       string // host working directory, becomes the cwd of the run
	Line      string // command line, split on whitespace
	Stdin     string
	CPUTime   time.Duration
	WallTime  time.Duration
	MemoryKiB int64
}

// Result is the raw outcome of one execution. It carries no verdict;
// classification is the pipeline's job. Stdout and Stderr are capped at
// the runner's output bound; StdoutPath and StderrPath point at the full
// captured streams on disk, valid only as long as the working directory
// exists.
type Result struct {
	ExitCode   int
	Stdout     []byte
	Stderr     []byte
	StdoutPath string
	StderrPath string
	TimedOut   bool
	CPUTime    time.Duration
	WallTime   time.Duration
	MemoryKiB  int64
}

// Runner runs one command per call. Implementations must be safe for
// concurrent use and must not share any per-run state (box ids, temp
// files) between calls. A returned error means the sandbox itself failed;
// user-program failures are reported through Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Config selects and tunes a runner implementation.
type Config struct {
	Kind           string // "isolate" or "direct"
	IsolatePath    string // isolate binary, defaults to "isolate"
	MaxOutputBytes int64
}

// New builds the configured runner.
func New(cfg Config) (Runner, error) {
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	switch cfg.Kind {
	case "isolate", "":
		path := cfg.IsolatePath
		if path == "" {
			path = "isolate"
		}
		return NewIsolateRunner(path, cfg.MaxOutputBytes), nil
	case "direct":
		return NewDirectRunner(cfg.MaxOutputBytes), nil
	default:
		return nil, fmt.Errorf("unknown sandbox kind: %q", cfg.Kind)
	}
}

func splitLine(line string) ([]string, error) {
	argv := strings.Fields(line)
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command line")
	}
	return argv, nil
}

func capOutput(b []byte, max int64) []byte {
	if int64(len(b)) <= max {
		return b
	}
	capped := make([]byte, max, max+int64(len(truncationMarker)))
	copy(capped, b[:max])
	return append(capped, truncationMarker...)
}
