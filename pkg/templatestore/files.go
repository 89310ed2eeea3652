package templatestore

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing. The new content replaces
	// the old one only when Close returns nil; until then readers see the
	// previous content.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// List returns the names of the files directly under dir.
	List(ctx context.Context, dir string) ([]string, error)
}

const (
	filesDir = "templates"
	fileExt  = ".msgpack"
)

// Files is a Store that keeps one file per owner, at
// "templates/<owner>.msgpack", in a FileStore.
type Files struct {
	fs    FileStore
	locks OwnerLocks
}

// NewFiles returns a Store backed by fs.
func NewFiles(fs FileStore) *Files {
	return &Files{fs: fs}
}

func templatePath(ownerID string) string {
	return path.Join(filesDir, ownerID+fileExt)
}

func (f *Files) Save(ctx context.Context, t *voiceprint.Template) error {
	if err := checkSave(t); err != nil {
		return err
	}
	data, err := Marshal(t)
	if err != nil {
		return storageErr("encode", t.OwnerID, err)
	}

	unlock := f.locks.Lock(t.OwnerID)
	defer unlock()
	w, err := f.fs.Write(ctx, templatePath(t.OwnerID))
	if err != nil {
		return storageErr("save", t.OwnerID, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return storageErr("save", t.OwnerID, err)
	}
	if err := w.Close(); err != nil {
		return storageErr("save", t.OwnerID, err)
	}
	return nil
}

func (f *Files) Load(ctx context.Context, ownerID string) (*voiceprint.Template, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	unlock := f.locks.RLock(ownerID)
	defer unlock()
	r, err := f.fs.Read(ctx, templatePath(ownerID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, notFound(ownerID)
	}
	if err != nil {
		return nil, storageErr("load", ownerID, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, storageErr("load", ownerID, err)
	}
	return decodeFor(ownerID, data)
}

func (f *Files) Delete(ctx context.Context, ownerID string) error {
	if err := ValidateOwnerID(ownerID); err != nil {
		return err
	}

	unlock := f.locks.Lock(ownerID)
	defer unlock()
	if err := f.fs.Delete(ctx, templatePath(ownerID)); err != nil {
		return storageErr("delete", ownerID, err)
	}
	return nil
}

func (f *Files) List(ctx context.Context) ([]string, error) {
	names, err := f.fs.List(ctx, filesDir)
	if err != nil {
		return nil, storageErr("list", "", err)
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := strings.CutSuffix(name, fileExt)
		if !ok || ValidateOwnerID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *Files) Close() error {
	if c, ok := f.fs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ Store = (*Files)(nil)
