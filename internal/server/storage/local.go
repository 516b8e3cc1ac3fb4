package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/meduploads/internal/common"
	"github.com/dmitrijs2005/meduploads/internal/filex"
)

// LocalStore keeps blobs on the local filesystem under root.
type LocalStore struct {
	root string
}

// NewLocalStore creates root and one directory per category.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("upload root: %w", err)
	}
	for _, c := range Categories {
		if _, err := filex.EnsureDir(filepath.Join(abs, string(c))); err != nil {
			return nil, fmt.Errorf("category %s: %w", c, err)
		}
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute upload root.
func (s *LocalStore) Root() string { return s.root }

// Resolve maps key to an absolute path inside root.
func (s *LocalStore) Resolve(key string) (string, error) {
	return filex.ResolveWithin(s.root, key)
}

// Put writes data to a temp file next to the target, syncs it and renames it
// into place, so readers never observe a partial file.
func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) error {
	full, err := s.Resolve(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".upload-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := s.Resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if filex.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	full, err := s.Resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if filex.IsNotExist(err) {
			return fmt.Errorf("%s: %w", key, common.ErrorNotFound)
		}
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
