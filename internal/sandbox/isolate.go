package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	maxBoxID      = 1000
	extraTime     = 500 * time.Millisecond
	maxProcesses  = 128
	maxOpenFiles  = 128
	fsizeKiB      = 65536
	sandboxPath   = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	envBinary     = "/usr/bin/env"
	cleanupWithin = 5 * time.Second
)

// Redirection files live inside the bound working directory. isolate opens
// them from within the sandbox after chroot, so they must resolve under
// /box; only the meta file is handled by the outer isolate process and may
// sit on a host path.
const (
	stdinFile  = "stdin"
	stdoutFile = "stdout"
	stderrFile = "stderr"
)

// IsolateRunner drives the isolate(1) binary with control-group support.
// Every call claims a free box id, initializes the box, bind-mounts the
// caller's working directory over /box and tears the box down before
// returning, whatever the outcome.
type IsolateRunner struct {
	isolatePath string
	maxOutput   int64
	boxIDs      mapset.Set[int]
}

func NewIsolateRunner(isolatePath string, maxOutput int64) *IsolateRunner {
	return &IsolateRunner{
		isolatePath: isolatePath,
		maxOutput:   maxOutput,
		boxIDs:      mapset.NewSet[int](),
	}
}

func (r *IsolateRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	argv, err := splitLine(cmd.Line)
	if err != nil {
		return Result{}, err
	}

	boxID, err := r.acquireBox()
	if err != nil {
		return Result{}, err
	}
	defer r.releaseBox(boxID)

	if err := r.initBox(ctx, boxID); err != nil {
		return Result{}, err
	}
	defer r.cleanupBox(boxID)

	metaFile, err := os.CreateTemp("", fmt.Sprintf("isolate-meta-%d-*", boxID))
	if err != nil {
		return Result{}, fmt.Errorf("create meta file: %w", err)
	}
	metaPath := metaFile.Name()
	metaFile.Close()
	defer os.Remove(metaPath)

	if err := os.WriteFile(filepath.Join(cmd.Dir, stdinFile), []byte(cmd.Stdin), 0644); err != nil {
		return Result{}, fmt.Errorf("write stdin file: %w", err)
	}

	args := isolateArgs(boxID, metaPath, cmd)
	// isolate execs the target directly with no PATH search, so the run
	// line goes through env, which resolves it against the exported PATH.
	args = append(args, envBinary)
	args = append(args, argv...)

	start := time.Now()
	// isolate exits non-zero for TLE/RE/signals too; the meta file is the
	// authoritative account of what happened inside the box.
	runErr := exec.CommandContext(ctx, r.isolatePath, args...).Run()
	wall := time.Since(start)

	meta, metaErr := parseMetaFile(metaPath)
	// A context expiry kills the outer isolate process before it writes a
	// meaningful meta file. Only a deadline maps to a timeout verdict; a
	// cancellation (process shutdown) is an error, not a result.
	if ctxErr := ctx.Err(); ctxErr != nil && (metaErr != nil || (meta.Status == "" && runErr != nil)) {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Result{TimedOut: true, WallTime: wall}, nil
		}
		return Result{}, fmt.Errorf("run interrupted: %w", ctxErr)
	}
	if metaErr != nil {
		return Result{}, fmt.Errorf("parse isolate meta file: %w", metaErr)
	}
	if meta.Status == "XX" {
		return Result{}, fmt.Errorf("isolate internal error: %s", meta.Message)
	}
	if runErr != nil && meta.Status == "" && meta.ExitCode == 0 {
		return Result{}, fmt.Errorf("run isolate: %w", runErr)
	}

	stdoutPath := filepath.Join(cmd.Dir, stdoutFile)
	stderrPath := filepath.Join(cmd.Dir, stderrFile)
	res := Result{
		ExitCode:   meta.ExitCode,
		Stdout:     readCapped(stdoutPath, r.maxOutput),
		Stderr:     readCapped(stderrPath, r.maxOutput),
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		TimedOut:   meta.Status == "TO",
		CPUTime:    time.Duration(meta.TimeSec * float64(time.Second)),
		WallTime:   time.Duration(meta.WallSec * float64(time.Second)),
		MemoryKiB:  meta.CgMemKiB,
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
	}
	if res.TimedOut && res.ExitCode == 0 {
		res.ExitCode = -1
	}
	return res, nil
}

// isolateArgs builds everything up to and including "--run --". Redirect
// names are relative so the sandboxed process opens them under /box.
func isolateArgs(boxID int, metaPath string, cmd Command) []string {
	return []string{
		"--cg",
		fmt.Sprintf("--box-id=%d", boxID),
		fmt.Sprintf("--meta=%s", metaPath),
		fmt.Sprintf("--time=%.3f", cmd.CPUTime.Seconds()),
		fmt.Sprintf("--wall-time=%.3f", cmd.WallTime.Seconds()),
		fmt.Sprintf("--extra-time=%.3f", extraTime.Seconds()),
		fmt.Sprintf("--cg-mem=%d", cmd.MemoryKiB),
		fmt.Sprintf("--processes=%d", maxProcesses),
		fmt.Sprintf("--open-files=%d", maxOpenFiles),
		fmt.Sprintf("--fsize=%d", fsizeKiB),
		fmt.Sprintf("--dir=%s:/box:rw", cmd.Dir),
		"--env=PATH=" + sandboxPath,
		"--env=HOME=/box",
		"--stdin=" + stdinFile,
		"--stdout=" + stdoutFile,
		"--stderr=" + stderrFile,
		"--run", "--",
	}
}

// acquireBox claims the lowest free box id. Ids are process-local; two
// worker processes on one host must use distinct isolate box ranges, which
// isolate enforces via its own locking.
func (r *IsolateRunner) acquireBox() (int, error) {
	for id := 0; id < maxBoxID; id++ {
		if r.boxIDs.Add(id) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no free isolate box id")
}

func (r *IsolateRunner) releaseBox(id int) {
	r.boxIDs.Remove(id)
}

func (r *IsolateRunner) initBox(ctx context.Context, id int) error {
	// A leftover box from a crashed run makes --init fail, so clean first.
	r.cleanupBox(id)
	out, err := exec.CommandContext(ctx, r.isolatePath, "--cg", fmt.Sprintf("--box-id=%d", id), "--init").CombinedOutput()
	if err != nil {
		return fmt.Errorf("isolate init box %d: %w: %s", id, err, out)
	}
	return nil
}

func (r *IsolateRunner) cleanupBox(id int) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupWithin)
	defer cancel()
	_ = exec.CommandContext(ctx, r.isolatePath, "--cg", fmt.Sprintf("--box-id=%d", id), "--cleanup").Run()
}

func readCapped(path string, max int64) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return capOutput(data, max)
}
