package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// Local implements FileStore on a directory of an afero filesystem.
// All paths are resolved relative to the root directory.
type Local struct {
	fs   afero.Fs
	root string
}

// NewLocal creates a Local store rooted at dir on fsys. A nil fsys uses the
// OS filesystem. The directory is created (with parents) if absent.
func NewLocal(fsys afero.Fs, dir string) (*Local, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		dir = abs
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Local{fs: fsys, root: dir}, nil
}

// Root returns the store directory.
func (l *Local) Root() string { return l.root }

func (l *Local) resolve(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// Read opens the named file for reading.
func (l *Local) Read(_ context.Context, path string) (io.ReadCloser, error) {
	return l.fs.Open(l.resolve(path))
}

// Write creates or truncates the named file, creating parent directories.
func (l *Local) Write(_ context.Context, path string) (io.WriteCloser, error) {
	full := l.resolve(path)
	if err := l.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return l.fs.Create(full)
}

// Exists reports whether the named file exists.
func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := l.fs.Stat(l.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Location returns the file path of an artifact.
func (l *Local) Location(path string) string {
	return l.resolve(path)
}

var _ FileStore = (*Local)(nil)
