package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemBlobStore stores audio blobs on local disk. Meant for
// development and single-node deployments.
type FilesystemBlobStore struct {
	root    string
	baseURL string
}

// NewFilesystemBlobStore creates the root directory if needed
func NewFilesystemBlobStore(root, baseURL string) (*FilesystemBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FilesystemBlobStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put writes a blob to disk and returns its public URL
func (f *FilesystemBlobStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	clean, err := f.cleanKey(key)
	if err != nil {
		return "", err
	}

	path := filepath.Join(f.root, clean)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return f.baseURL + "/" + clean, nil
}

// Delete removes a blob. Deleting a missing key is not an error.
func (f *FilesystemBlobStore) Delete(ctx context.Context, key string) error {
	clean, err := f.cleanKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(f.root, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// cleanKey rejects keys that would escape the root directory
func (f *FilesystemBlobStore) cleanKey(key string) (string, error) {
	clean := filepath.Clean(key)
	if clean == "." || clean == ".." ||
		strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key: %s", key)
	}
	return clean, nil
}
