package templatestore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalFiles implements FileStore on top of the local filesystem.
// All paths are resolved relative to the configured root directory.
//
// Writes go to a temporary file in the destination directory and are
// renamed into place on Close, so readers never observe a partial file.
type LocalFiles struct {
	root string
}

// NewLocalFiles creates a LocalFiles store rooted at dir.
// The directory is created (with parents) if it does not already exist.
func NewLocalFiles(dir string) (*LocalFiles, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalFiles{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *LocalFiles) Root() string { return l.root }

func (l *LocalFiles) resolve(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *LocalFiles) Read(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(l.resolve(path))
}

func (l *LocalFiles) Write(_ context.Context, path string) (io.WriteCloser, error) {
	full := l.resolve(path)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return nil, err
	}
	return &atomicFile{f: f, dst: full}, nil
}

func (l *LocalFiles) Delete(_ context.Context, path string) error {
	err := os.Remove(l.resolve(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (l *LocalFiles) List(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(l.resolve(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// atomicFile writes to a temp file and renames it over dst on Close.
// Any write error discards the temp file.
type atomicFile struct {
	f   *os.File
	dst string
	err error
}

func (a *atomicFile) Write(p []byte) (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	n, err := a.f.Write(p)
	if err != nil {
		a.err = err
	}
	return n, err
}

func (a *atomicFile) Close() error {
	tmp := a.f.Name()
	err := a.err
	if err == nil {
		err = a.f.Sync()
	}
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, a.dst)
	}
	if err != nil {
		os.Remove(tmp)
	}
	return err
}

var _ FileStore = (*LocalFiles)(nil)
