package fsxlocal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/jobgrid/pkg/fsx"
)

// LocalStore implements fsx.ObjectStore on local disk, one directory per
// bucket. Files are expected to be served under publicBaseURL.
type LocalStore struct {
	basePath      string
	publicBaseURL string
}

// NewLocalStore creates the root directory if needed.
// basePath: root directory (e.g., "./uploads")
func NewLocalStore(basePath, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return &LocalStore{
		basePath:      absPath,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	fullPath, err := s.fullPath(bucket, key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fsx.ErrUploadFailed().WithCause(err).WithDetail("op", "mkdir")
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fsx.ErrUploadFailed().WithCause(err).WithDetail("op", "create")
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fsx.ErrUploadFailed().WithCause(err).WithDetail("op", "write")
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	fullPath, err := s.fullPath(bucket, key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fsx.ErrStatFailed().WithCause(err)
	}
	return true, nil
}

func (s *LocalStore) PublicURL(bucket, key string) string {
	return s.publicBaseURL + "/" + bucket + "/" + fsx.EscapeKey(key)
}

// BasePath returns the root directory, for mounting a static file server
func (s *LocalStore) BasePath() string {
	return s.basePath
}

func (s *LocalStore) fullPath(bucket, key string) (string, error) {
	if !fsx.ValidBucket(bucket) {
		return "", fsx.ErrInvalidBucket().WithDetail("bucket", bucket)
	}
	clean, err := fsx.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(clean)), nil
}
