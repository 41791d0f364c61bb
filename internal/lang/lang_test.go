package lang_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/programme-lv/judge/internal/lang"
)

func TestResolveBuiltin(t *testing.T) {
	r := lang.NewRegistry()

	p, err := r.Resolve(71)
	require.NoError(t, err)
	require.Equal(t, "Python 3", p.Name)
	require.Equal(t, "main.py", p.SourceFile)
	require.False(t, p.Compiled())

	p, err = r.Resolve(54)
	require.NoError(t, err)
	require.True(t, p.Compiled())
}

func TestResolveUnknown(t *testing.T) {
	r := lang.NewRegistry()

	_, err := r.Resolve(999)
	require.ErrorIs(t, err, lang.ErrUnknownLanguage{ID: 999})
	require.Contains(t, err.Error(), "999")
}

func TestExtraProfilesOverrideBuiltin(t *testing.T) {
	r := lang.NewRegistry(lang.Profile{
		ID:         71,
		Name:       "PyPy 3",
		SourceFile: "main.py",
		RunCmd:     "pypy3 main.py",
	})

	p, err := r.Resolve(71)
	require.NoError(t, err)
	require.Equal(t, "PyPy 3", p.Name)
	require.Equal(t, "pypy3 main.py", p.RunCmd)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.toml")
	err := os.WriteFile(path, []byte(`
[[languages]]
id = 75
name = "Rust"
source_file = "main.rs"
compile_cmd = "rustc -O -o main main.rs"
run_cmd = "./main"
`), 0644)
	require.NoError(t, err)

	profiles, err := lang.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Equal(t, 75, profiles[0].ID)
	require.Equal(t, "Rust", profiles[0].Name)

	r := lang.NewRegistry(profiles...)
	p, err := r.Resolve(75)
	require.NoError(t, err)
	require.True(t, p.Compiled())
}

func TestLoadFileRejectsIncompleteEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.toml")
	err := os.WriteFile(path, []byte(`
[[languages]]
id = 76
name = "Broken"
`), 0644)
	require.NoError(t, err)

	_, err = lang.LoadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Broken")
}

func TestAllSortedByID(t *testing.T) {
	r := lang.NewRegistry()

	all := r.All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].ID, all[i].ID)
	}
}
