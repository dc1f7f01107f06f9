// Package fsx abstracts the object store holding uploaded files.
package fsx

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("FSX")

var (
	CodeInvalidKey    = ErrRegistry.Register("INVALID_KEY", errx.TypeValidation, http.StatusBadRequest, "Invalid file path")
	CodeInvalidBucket = ErrRegistry.Register("INVALID_BUCKET", errx.TypeValidation, http.StatusBadRequest, "Invalid bucket")
	CodeUploadFailed  = ErrRegistry.Register("UPLOAD_FAILED", errx.TypeExternal, http.StatusBadRequest, "Upload failed")
	CodeStatFailed    = ErrRegistry.Register("STAT_FAILED", errx.TypeExternal, http.StatusInternalServerError, "Could not read file metadata")
)

func ErrInvalidKey() *errx.Error    { return ErrRegistry.New(CodeInvalidKey) }
func ErrInvalidBucket() *errx.Error { return ErrRegistry.New(CodeInvalidBucket) }
func ErrUploadFailed() *errx.Error  { return ErrRegistry.New(CodeUploadFailed) }
func ErrStatFailed() *errx.Error    { return ErrRegistry.New(CodeStatFailed) }

// ObjectStore stores objects under bucket/key and serves them publicly.
// Put overwrites an existing object.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	PublicURL(bucket, key string) string
}

// CleanKey normalizes an object key and rejects keys escaping the bucket.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey().WithDetail("reason", "empty")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", ErrInvalidKey().WithDetail("key", key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey().WithDetail("key", key)
	}
	return cleaned, nil
}

// ValidBucket accepts lower-case letters, digits, '.', '-' and '_'
func ValidBucket(bucket string) bool {
	if bucket == "" || len(bucket) > 63 {
		return false
	}
	for _, c := range bucket {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// PutFileHeader stores a multipart upload and returns its public URL.
func PutFileHeader(ctx context.Context, s ObjectStore, bucket, key string, fh *multipart.FileHeader) (string, error) {
	if !ValidBucket(bucket) {
		return "", ErrInvalidBucket().WithDetail("bucket", bucket)
	}
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", ErrUploadFailed().WithCause(err)
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DetectContentType(fh.Filename)
	}

	if err := s.Put(ctx, bucket, clean, f, fh.Size, contentType); err != nil {
		return "", err
	}
	return s.PublicURL(bucket, clean), nil
}

// DetectContentType guesses a MIME type from a file extension
func DetectContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".webp":
		return "image/webp"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// EscapeKey percent-encodes each key segment for use in a URL path
func EscapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
