package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsolateArgsRedirectsInsideBox(t *testing.T) {
	args := isolateArgs(3, "/tmp/meta-xyz", Command{
		Dir:       "/work/subm-1",
		CPUTime:   1500 * time.Millisecond,
		WallTime:  3 * time.Second,
		MemoryKiB: 262144,
	})

	// Redirect files are opened by the sandboxed process after chroot, so
	// they must be relative names resolving under /box, never host paths.
	require.Contains(t, args, "--stdin=stdin")
	require.Contains(t, args, "--stdout=stdout")
	require.Contains(t, args, "--stderr=stderr")
	for _, a := range args {
		if strings.HasPrefix(a, "--stdin=") || strings.HasPrefix(a, "--stdout=") || strings.HasPrefix(a, "--stderr=") {
			require.NotContains(t, a, "/")
		}
	}

	// The meta file is handled outside the sandbox and stays on the host.
	require.Contains(t, args, "--meta=/tmp/meta-xyz")
	require.Contains(t, args, "--dir=/work/subm-1:/box:rw")
	require.Contains(t, args, "--box-id=3")
	require.Contains(t, args, "--time=1.500")
	require.Contains(t, args, "--wall-time=3.000")
	require.Contains(t, args, "--cg-mem=262144")
	require.Equal(t, "--", args[len(args)-1])
	require.Equal(t, "--run", args[len(args)-2])
}

func TestIsolateRunGoesThroughEnv(t *testing.T) {
	requireLinux(t)
	dir := t.TempDir()

	// Stub isolate that records its argv and exits cleanly, so the test
	// can assert on the composed command without the real binary.
	stub := filepath.Join(dir, "isolate-stub")
	script := "#!/bin/sh\necho \"$@\" >> \"$RECORD\"\nexit 0\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0755))
	record := filepath.Join(dir, "argv.log")
	t.Setenv("RECORD", record)

	r := NewIsolateRunner(stub, DefaultMaxOutputBytes)
	workDir := t.TempDir()
	_, err := r.Run(context.Background(), Command{
		Dir:      workDir,
		Line:     "python3 main.py",
		CPUTime:  time.Second,
		WallTime: 2 * time.Second,
	})
	// The stub writes no meta fields, so Run reports the empty outcome as
	// a plain zero-exit result; only the recorded argv matters here.
	require.NoError(t, err)

	recorded, err := os.ReadFile(record)
	require.NoError(t, err)
	// Bare command names carry no PATH search inside the box; the run line
	// must be wrapped in env.
	require.Contains(t, string(recorded), "--run -- /usr/bin/env python3 main.py")
}

func TestIsolateCanceledContextIsErrorNotTimeout(t *testing.T) {
	requireLinux(t)
	dir := t.TempDir()

	// Stub isolate that hangs on --run until killed, like a real run that
	// is interrupted mid-execution.
	stub := filepath.Join(dir, "isolate-stub")
	script := "#!/bin/sh\ncase \" $* \" in *\" --run \"*) sleep 30 ;; esac\nexit 0\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0755))

	r := NewIsolateRunner(stub, DefaultMaxOutputBytes)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	res, err := r.Run(ctx, Command{
		Dir:      t.TempDir(),
		Line:     "python3 main.py",
		CPUTime:  time.Second,
		WallTime: 2 * time.Second,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, res.TimedOut)
}

func TestIsolateDeadlineIsTimeout(t *testing.T) {
	requireLinux(t)
	dir := t.TempDir()

	stub := filepath.Join(dir, "isolate-stub")
	script := "#!/bin/sh\ncase \" $* \" in *\" --run \"*) sleep 30 ;; esac\nexit 0\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0755))

	r := NewIsolateRunner(stub, DefaultMaxOutputBytes)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res, err := r.Run(ctx, Command{
		Dir:      t.TempDir(),
		Line:     "python3 main.py",
		CPUTime:  time.Second,
		WallTime: 2 * time.Second,
	})
	require.NoError(t, err)
	require.True(t, res.TimedOut)
}

func TestIsolateBoxIDsAreExclusive(t *testing.T) {
	r := NewIsolateRunner("isolate", DefaultMaxOutputBytes)

	id1, err := r.acquireBox()
	require.NoError(t, err)
	id2, err := r.acquireBox()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	r.releaseBox(id1)
	id3, err := r.acquireBox()
	require.NoError(t, err)
	require.Equal(t, id1, id3)
}
