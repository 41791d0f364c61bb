package judge_test

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/programme-lv/judge/internal/judge"
	"github.com/programme-lv/judge/internal/lang"
	"github.com/programme-lv/judge/internal/sandbox"
	"github.com/programme-lv/judge/internal/subm"
)

// These tests run real programs through the direct runner. They skip on
// hosts without the toolchain instead of failing.

func newDirectJudge(t *testing.T) *judge.Judge {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("direct runner needs a linux host")
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return judge.New(lang.NewRegistry(), sandbox.NewDirectRunner(sandbox.DefaultMaxOutputBytes), t.TempDir(), nil, log)
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func TestPythonSubmissionEndToEnd(t *testing.T) {
	requireBinary(t, "python3")
	j := newDirectJudge(t)

	res := j.Evaluate(context.Background(), &subm.Submission{
		SourceCode:     "a, b = map(int, input().split())\nprint(a + b)\n",
		LanguageID:     71,
		Stdin:          "19 23\n",
		ExpectedOutput: strptr("42"),
		TimeLimitMs:    5000,
		MemLimitKiB:    262144,
	})
	require.Equal(t, subm.StatusAccepted, res.Status)
	require.Equal(t, "42\n", res.Stdout)
	require.GreaterOrEqual(t, res.TimeSec, 0.0)
}

func TestPythonRuntimeErrorEndToEnd(t *testing.T) {
	requireBinary(t, "python3")
	j := newDirectJudge(t)

	res := j.Evaluate(context.Background(), &subm.Submission{
		SourceCode:  "print(1 / 0)\n",
		LanguageID:  71,
		TimeLimitMs: 5000,
		MemLimitKiB: 262144,
	})
	require.Equal(t, subm.StatusRuntimeError, res.Status)
	require.Contains(t, res.Stderr, "ZeroDivisionError")
}

func TestPythonTimeLimitEndToEnd(t *testing.T) {
	requireBinary(t, "python3")
	j := newDirectJudge(t)

	res := j.Evaluate(context.Background(), &subm.Submission{
		SourceCode:  "while True:\n    pass\n",
		LanguageID:  71,
		TimeLimitMs: 300,
		MemLimitKiB: 262144,
	})
	require.Equal(t, subm.StatusTimeLimit, res.Status)
}

func TestCppCompileErrorEndToEnd(t *testing.T) {
	requireBinary(t, "g++")
	j := newDirectJudge(t)

	res := j.Evaluate(context.Background(), &subm.Submission{
		SourceCode:  "int main( { return 0; }\n",
		LanguageID:  54,
		TimeLimitMs: 5000,
		MemLimitKiB: 262144,
	})
	require.Equal(t, subm.StatusCompileError, res.Status)
	require.NotEmpty(t, res.CompileOutput)
}
