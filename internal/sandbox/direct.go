package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

// DirectRunner executes commands as plain subprocesses in the caller's
// working directory. It enforces the wall-clock ceiling by killing the
// process group and reports CPU time and peak RSS from the wait rusage,
// but provides no memory enforcement and no isolation. Meant for
// development hosts without isolate; never expose it to untrusted code in
// production.
type DirectRunner struct {
	maxOutput int64
}

func NewDirectRunner(maxOutput int64) *DirectRunner {
	return &DirectRunner{maxOutput: maxOutput}
}

func (r *DirectRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	argv, err := splitLine(cmd.Line)
	if err != nil {
		return Result{}, err
	}

	// The full streams go to files in the working directory, mirroring the
	// isolate redirect layout; the in-memory copies are read back capped.
	stdoutPath := filepath.Join(cmd.Dir, stdoutFile)
	stderrPath := filepath.Join(cmd.Dir, stderrFile)
	stdout, err := os.Create(stdoutPath)
	if err != nil {
		return Result{}, fmt.Errorf("create stdout file: %w", err)
	}
	defer stdout.Close()
	stderr, err := os.Create(stderrPath)
	if err != nil {
		return Result{}, fmt.Errorf("create stderr file: %w", err)
	}
	defer stderr.Close()

	proc := exec.Command(argv[0], argv[1:]...)
	proc.Dir = cmd.Dir
	proc.Stdin = strings.NewReader(cmd.Stdin)
	proc.Stdout = stdout
	proc.Stderr = stderr
	// Own process group so a kill reaches children the program spawned.
	proc.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := proc.Start(); err != nil {
		return Result{}, fmt.Errorf("start command: %w", err)
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		wallTimer := time.NewTimer(cmd.WallTime)
		defer wallTimer.Stop()
		select {
		case <-done:
		case <-wallTimer.C:
			timedOut.Store(true)
			killGroup(proc.Process.Pid)
		case <-ctx.Done():
			killGroup(proc.Process.Pid)
		}
	}()

	waitErr := proc.Wait()
	close(done)
	wall := time.Since(start)

	if proc.ProcessState == nil {
		return Result{}, fmt.Errorf("wait command: %w", waitErr)
	}
	res := Result{
		ExitCode:   proc.ProcessState.ExitCode(),
		Stdout:     readCapped(stdoutPath, r.maxOutput),
		Stderr:     readCapped(stderrPath, r.maxOutput),
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		TimedOut:   timedOut.Load(),
		CPUTime:    proc.ProcessState.UserTime() + proc.ProcessState.SystemTime(),
		WallTime:   wall,
	}
	if rusage, ok := proc.ProcessState.SysUsage().(*syscall.Rusage); ok {
		res.MemoryKiB = rusage.Maxrss
	}
	// CPU time past the ceiling counts as a timeout even when the wall
	// timer never fired (e.g. a busy loop on a loaded machine).
	if cmd.CPUTime > 0 && res.CPUTime > cmd.CPUTime {
		res.TimedOut = true
	}
	if res.TimedOut && res.ExitCode == 0 {
		res.ExitCode = -1
	}
	return res, nil
}

func killGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
