// Package judge turns one claimed submission into a terminal verdict. The
// pipeline is compile (when the language needs it), run against the given
// stdin, then compare against the expected output. Faults in the pipeline
// itself never escape as errors; they come back as an Internal Error
// verdict so the submission always reaches a terminal status.
package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/programme-lv/judge/internal/artifacts"
	"github.com/programme-lv/judge/internal/lang"
	"github.com/programme-lv/judge/internal/sandbox"
	"github.com/programme-lv/judge/internal/subm"
)

// Compilers get a fixed ceiling independent of the submission's run
// limits; a compile that needs longer than this is broken input.
const (
	compileCPUTime  = 20 * time.Second
	compileWallTime = 30 * time.Second
	compileMemKiB   = 512 * 1024

	// Wall ceiling for the run step is double the CPU limit, so a program
	// sleeping on blocked input still terminates.
	wallTimeFactor = 2
)

type Judge struct {
	langs    *lang.Registry
	runner   sandbox.Runner
	workRoot string
	archive  *artifacts.Archive
	log      *slog.Logger
}

// New builds a judge. workRoot is where per-submission working
// directories are created; empty means the system temp dir. archive may
// be nil to disable output archiving. Archiving happens here rather than
// in the worker because the full stream files live in the working
// directory, which is gone by the time Evaluate returns.
func New(langs *lang.Registry, runner sandbox.Runner, workRoot string, archive *artifacts.Archive, log *slog.Logger) *Judge {
	return &Judge{
		langs:    langs,
		runner:   runner,
		workRoot: workRoot,
		archive:  archive,
		log:      log,
	}
}

// Evaluate runs the full pipeline for one submission. It always returns a
// terminal result; pipeline faults yield Internal Error with a message.
func (j *Judge) Evaluate(ctx context.Context, s *subm.Submission) (res subm.Result) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Error("evaluation panicked", "submission", s.ID, "panic", r)
			res = internalError(fmt.Sprintf("evaluation panicked: %v", r))
		}
	}()

	profile, err := j.langs.Resolve(s.LanguageID)
	if err != nil {
		var unknown lang.ErrUnknownLanguage
		if errors.As(err, &unknown) {
			return internalError(err.Error())
		}
		return internalError(fmt.Sprintf("resolve language: %v", err))
	}

	dir, err := os.MkdirTemp(j.workRoot, fmt.Sprintf("subm-%d-*", s.ID))
	if err != nil {
		return internalError(fmt.Sprintf("create working directory: %v", err))
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, profile.SourceFile), []byte(s.SourceCode), 0644); err != nil {
		return internalError(fmt.Sprintf("write source file: %v", err))
	}

	if profile.Compiled() {
		out, ok, err := j.compile(ctx, dir, profile)
		if err != nil {
			return internalError(fmt.Sprintf("compile: %v", err))
		}
		if !ok {
			return subm.Result{
				Status:        subm.StatusCompileError,
				CompileOutput: out,
			}
		}
	}

	return j.run(ctx, dir, profile, s)
}

// compile runs the compile command. ok is false for a compiler rejection
// (including a compile timeout); err is reserved for sandbox faults.
func (j *Judge) compile(ctx context.Context, dir string, profile lang.Profile) (output string, ok bool, err error) {
	res, err := j.runner.Run(ctx, sandbox.Command{
		Dir:       dir,
		Line:      profile.CompileCmd,
		CPUTime:   compileCPUTime,
		WallTime:  compileWallTime,
		MemoryKiB: compileMemKiB,
	})
	if err != nil {
		return "", false, err
	}
	output = combinedOutput(res)
	if res.TimedOut {
		return "compilation time limit exceeded\n" + output, false, nil
	}
	if res.ExitCode != 0 {
		return output, false, nil
	}
	return output, true, nil
}

func (j *Judge) run(ctx context.Context, dir string, profile lang.Profile, s *subm.Submission) subm.Result {
	cpuLimit := time.Duration(s.TimeLimitMs) * time.Millisecond
	res, err := j.runner.Run(ctx, sandbox.Command{
		Dir:       dir,
		Line:      profile.RunCmd,
		Stdin:     s.Stdin,
		CPUTime:   cpuLimit,
		WallTime:  cpuLimit * wallTimeFactor,
		MemoryKiB: int64(s.MemLimitKiB),
	})
	if err != nil {
		return internalError(fmt.Sprintf("run program: %v", err))
	}
	if err := j.archive.Save(s.ID, res.StdoutPath, res.StderrPath); err != nil {
		j.log.Warn("archive outputs", "submission", s.ID, "error", err)
	}

	verdict := subm.Result{
		Stdout:    string(res.Stdout),
		Stderr:    string(res.Stderr),
		TimeSec:   res.CPUTime.Seconds(),
		MemoryKiB: res.MemoryKiB,
	}
	switch {
	case res.TimedOut:
		verdict.Status = subm.StatusTimeLimit
	case res.ExitCode != 0:
		verdict.Status = subm.StatusRuntimeError
		verdict.Message = fmt.Sprintf("exited with code %d", res.ExitCode)
	case outputMatches(s.ExpectedOutput, res.Stdout):
		verdict.Status = subm.StatusAccepted
	default:
		verdict.Status = subm.StatusWrongAnswer
	}
	return verdict
}

// outputMatches compares trimmed outputs byte for byte. A submission with
// no expected output is a run-only job and always matches.
func outputMatches(expected *string, stdout []byte) bool {
	if expected == nil {
		return true
	}
	return strings.TrimSpace(*expected) == strings.TrimSpace(string(stdout))
}

func combinedOutput(res sandbox.Result) string {
	out := string(res.Stderr)
	if len(res.Stdout) > 0 {
		if out != "" {
			out += "\n"
		}
		out += string(res.Stdout)
	}
	return out
}

func internalError(msg string) subm.Result {
	return subm.Result{
		Status:  subm.StatusInternalError,
		Message: msg,
	}
}
