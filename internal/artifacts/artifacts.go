// Package artifacts archives raw program output to disk. The store only
// keeps the capped stdout/stderr columns; the archive compresses the full
// stream files straight off the sandbox working directory, before the
// pipeline removes it, for debugging disputed verdicts.
package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Archive writes one zstd file per submission stream under its root
// directory. A nil Archive is valid and archives nothing.
type Archive struct {
	root    string
	encOpts []zstd.EOption
}

func NewArchive(root string) (*Archive, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Archive{
		root:    root,
		encOpts: []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedDefault)},
	}, nil
}

// Save compresses the full stdout and stderr stream files of one evaluated
// submission. Missing or empty source files are skipped; the streams are
// copied, never loaded into memory whole.
func (a *Archive) Save(submissionID int64, stdoutPath, stderrPath string) error {
	if a == nil {
		return nil
	}
	if err := a.compress(submissionID, "stdout", stdoutPath); err != nil {
		return err
	}
	return a.compress(submissionID, "stderr", stderrPath)
}

func (a *Archive) compress(submissionID int64, stream, sourcePath string) error {
	if sourcePath == "" {
		return nil
	}
	source, err := os.Open(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open stream %s: %w", sourcePath, err)
	}
	defer source.Close()
	if info, err := source.Stat(); err != nil || info.Size() == 0 {
		return nil
	}

	path := filepath.Join(a.root, fmt.Sprintf("%d-%s.zst", submissionID, stream))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact %s: %w", path, err)
	}
	defer file.Close()

	enc, err := zstd.NewWriter(file, a.encOpts...)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, source); err != nil {
		enc.Close()
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush artifact %s: %w", path, err)
	}
	return nil
}

// Load reads one archived stream back, mostly for tests and tooling.
func (a *Archive) Load(submissionID int64, stream string) (string, error) {
	path := filepath.Join(a.root, fmt.Sprintf("%d-%s.zst", submissionID, stream))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return "", err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return string(out), nil
}
