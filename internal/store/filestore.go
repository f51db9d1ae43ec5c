package store

import (
	"fmt"
	"os"
	"path/filepath"

	"strata.dev/strata/internal/model"
)

// FileStore is an ObjectStore backed by a directory of digest-named files.
// Writes go through a tempfile and rename, so a crashed process can leave
// at worst an unreferenced object, never a torn one.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore at the given directory.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create objects dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id model.ID) string {
	return filepath.Join(s.dir, id.Filename())
}

// Get reads an object by id.
func (s *FileStore) Get(id model.ID) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", id, err)
	}
	return data, nil
}

// Put writes data under its digest. If the object already exists, this is
// a no-op.
func (s *FileStore) Put(data []byte) (model.ID, error) {
	id := model.ComputeID(data)
	path := s.path(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil // already exists
	}
	if err := SafeWrite(path, data, 0644); err != nil {
		return model.ID{}, fmt.Errorf("write object: %w", err)
	}
	return id, nil
}

// Has checks whether an object exists.
func (s *FileStore) Has(id model.ID) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// SafeWrite writes data to path atomically: tempfile -> fsync -> rename.
// The tempfile is created in the same directory as path to ensure the rename
// is atomic (same filesystem).
func SafeWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	// Clean up on any error
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err = f.Chmod(perm); err != nil {
		f.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp to target: %w", err)
	}
	return nil
}
