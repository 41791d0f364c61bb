package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeMeta(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meta")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseMetaFileSuccess(t *testing.T) {
	meta, err := parseMetaFile(writeMeta(t, `time:0.042
time-wall:0.051
cg-mem:14336
exitcode:0
`))
	require.NoError(t, err)
	require.Equal(t, 0.042, meta.TimeSec)
	require.Equal(t, 0.051, meta.WallSec)
	require.Equal(t, int64(14336), meta.CgMemKiB)
	require.Equal(t, 0, meta.ExitCode)
	require.Empty(t, meta.Status)
}

func TestParseMetaFileTimeout(t *testing.T) {
	meta, err := parseMetaFile(writeMeta(t, `time:2.104
time-wall:2.223
status:TO
message:Time limit exceeded
exitcode:0
`))
	require.NoError(t, err)
	require.Equal(t, "TO", meta.Status)
	require.Equal(t, "Time limit exceeded", meta.Message)
}

func TestParseMetaFileSignalBecomesExitCode(t *testing.T) {
	meta, err := parseMetaFile(writeMeta(t, `status:SG
exitsig:11
exitcode:0
`))
	require.NoError(t, err)
	require.Equal(t, 139, meta.ExitCode)
	require.Equal(t, 11, meta.ExitSig)
}

func TestParseMetaFileMissing(t *testing.T) {
	_, err := parseMetaFile(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestCapOutput(t *testing.T) {
	small := []byte("abc")
	require.Equal(t, small, capOutput(small, 16))

	capped := capOutput([]byte("aaaaaaaaaa"), 4)
	require.Equal(t, "aaaa"+truncationMarker, string(capped))
}
