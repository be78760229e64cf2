package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore serves uploaded sources from local disk and delivers
// finished exports to it
type DiskStore struct{}

// NewDiskStore creates a local disk backend
func NewDiskStore() *DiskStore {
	return &DiskStore{}
}

func diskPath(uri string) (string, error) {
	scheme, path, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	if scheme != "file" {
		return "", fmt.Errorf("disk storage only supports file:// URIs, got %s://", scheme)
	}
	return path, nil
}

// Open opens a local file for reading
func (ds *DiskStore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	path, err := diskPath(uri)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Store writes an artifact to local disk, creating parent directories
// as needed. The write goes through a temp file so a failed copy never
// leaves a partial artifact at the destination.
func (ds *DiskStore) Store(ctx context.Context, uri string, data io.Reader) error {
	path, err := diskPath(uri)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to place file: %w", err)
	}
	return nil
}

// Exists checks whether a local file exists
func (ds *DiskStore) Exists(ctx context.Context, uri string) (bool, error) {
	path, err := diskPath(uri)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
