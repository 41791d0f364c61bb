package subm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/programme-lv/judge/internal/subm"
)

func TestTerminalStatuses(t *testing.T) {
	require.False(t, subm.StatusInQueue.IsTerminal())
	require.False(t, subm.StatusProcessing.IsTerminal())

	for _, s := range []subm.Status{
		subm.StatusAccepted,
		subm.StatusWrongAnswer,
		subm.StatusCompileError,
		subm.StatusRuntimeError,
		subm.StatusTimeLimit,
		subm.StatusInternalError,
	} {
		require.True(t, s.IsTerminal(), "status %q", s)
	}
}

func TestStatusStrings(t *testing.T) {
	// The stored values are part of the external contract with polling
	// clients and must stay stable.
	require.Equal(t, "In Queue", subm.StatusInQueue.String())
	require.Equal(t, "Processing", subm.StatusProcessing.String())
	require.Equal(t, "Compilation Error", subm.StatusCompileError.String())
	require.Equal(t, "Time Limit Exceeded", subm.StatusTimeLimit.String())
}
