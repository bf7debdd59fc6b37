package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore is the narrow contract this service requires from its
// attachment store. Uploads are content-addressed by caller-supplied path
// and never overwrite; deletes are best-effort and batched.
type BlobStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string, overwrite bool) (string, error)
	Delete(ctx context.Context, bucket string, paths []string) error
	Open(ctx context.Context, bucket, path string) (io.ReadCloser, error)
}

// LocalBlobStore keeps blobs on disk under baseDir/bucket/path. It is the
// default store for single-node deployments; the interface above allows an
// object-store client to be swapped in without touching the workflow.
type LocalBlobStore struct {
	baseDir string
}

// NewLocalBlobStore ensures the base directory exists and returns a handle.
func NewLocalBlobStore(baseDir string) (*LocalBlobStore, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob base directory: %w", err)
	}
	return &LocalBlobStore{baseDir: baseDir}, nil
}

// Upload writes the blob, refusing to replace an existing object unless
// overwrite is set. It returns the stored path.
func (s *LocalBlobStore) Upload(ctx context.Context, bucket, path string, data []byte, contentType string, overwrite bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(bucket, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(full, flags, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob %s/%s: %w", bucket, path, err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := file.Write(data); err != nil {
		return "", fmt.Errorf("write blob %s/%s: %w", bucket, path, err)
	}
	return path, nil
}

// Delete removes the listed blobs, ignoring objects that are already gone.
func (s *LocalBlobStore) Delete(ctx context.Context, bucket string, paths []string) error {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		full, err := s.resolve(bucket, path)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete blob %s/%s: %w", bucket, path, err)
		}
	}
	return nil
}

// Open returns a read-only handle for the stored blob.
func (s *LocalBlobStore) Open(ctx context.Context, bucket, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(bucket, path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open blob %s/%s: %w", bucket, path, err)
	}
	return file, nil
}

func (s *LocalBlobStore) resolve(bucket, path string) (string, error) {
	if bucket == "" || path == "" {
		return "", fmt.Errorf("bucket and path required")
	}
	clean := filepath.Clean(filepath.Join(s.baseDir, bucket, path))
	root := filepath.Clean(filepath.Join(s.baseDir, bucket))
	if clean != root && !strings.HasPrefix(clean, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob path escapes bucket: %s", path)
	}
	return clean, nil
}
