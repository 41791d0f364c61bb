package lang

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Profile is the static compile/run recipe for one language. Commands are
// executed with the sandbox working directory as the current directory, so
// they must not contain absolute paths.
type Profile struct {
	ID         int    `toml:"id"`
	Name       string `toml:"name"`
	SourceFile string `toml:"source_file"`
	CompileCmd string `toml:"compile_cmd"` // empty for interpreted languages
	RunCmd     string `toml:"run_cmd"`
	HelloWorld string `toml:"hello_world"` // used by the environment check
}

// Compiled reports whether the profile has a compile step.
func (p Profile) Compiled() bool {
	return p.CompileCmd != ""
}

// Registry resolves language ids to profiles. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	byID map[int]Profile
}

// ErrUnknownLanguage is returned by Resolve for ids with no profile.
type ErrUnknownLanguage struct {
	ID int
}

func (e ErrUnknownLanguage) Error() string {
	return fmt.Sprintf("unsupported language id: %d", e.ID)
}

// NewRegistry builds a registry from the built-in table, overlaid with the
// given extra profiles (matching ids replace built-in rows).
func NewRegistry(extra ...Profile) *Registry {
	byID := make(map[int]Profile, len(builtin)+len(extra))
	for _, p := range builtin {
		byID[p.ID] = p
	}
	for _, p := range extra {
		byID[p.ID] = p
	}
	return &Registry{byID: byID}
}

// LoadFile reads additional profiles from a TOML file:
//
//	[[languages]]
//	id = 75
//	name = "Rust"
//	source_file = "main.rs"
//	compile_cmd = "rustc -O -o main main.rs"
//	run_cmd = "./main"
func LoadFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language file: %w", err)
	}
	var root struct {
		Languages []Profile `toml:"languages"`
	}
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse language file: %w", err)
	}
	for _, p := range root.Languages {
		if p.ID == 0 || p.SourceFile == "" || p.RunCmd == "" {
			return nil, fmt.Errorf("language entry %q incomplete: id, source_file and run_cmd are required", p.Name)
		}
	}
	return root.Languages, nil
}

// Resolve returns the profile for the given id. The lookup is deterministic
// and side-effect free; an unknown id yields ErrUnknownLanguage.
func (r *Registry) Resolve(id int) (Profile, error) {
	p, ok := r.byID[id]
	if !ok {
		return Profile{}, ErrUnknownLanguage{ID: id}
	}
	return p, nil
}

// All returns every registered profile ordered by id.
func (r *Registry) All() []Profile {
	out := make([]Profile, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
