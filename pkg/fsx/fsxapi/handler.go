package fsxapi

import (
	"context"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/fsx"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

const defaultObjectName = "uploaded-file"

// UploadHandler exposes a generic multipart upload endpoint
type UploadHandler struct {
	store fsx.ObjectStore
}

func NewUploadHandler(store fsx.ObjectStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// RegisterRoutes mounts POST /upload behind the given middleware
func (h *UploadHandler) RegisterRoutes(router fiber.Router, middleware ...fiber.Handler) {
	handlers := append(middleware, h.Upload)
	router.Post("/upload", handlers...)
}

// Upload stores the "file" part in "bucket" at "path" (default: the file
// name) and returns its public URL. An existing object at that key is
// overwritten and the response says so.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	bucket := c.FormValue("bucket")
	if bucket == "" {
		return errx.Validation("Missing required field: bucket")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return errx.Validation("No file uploaded")
	}

	key := c.FormValue("path")
	if key == "" {
		key = file.Filename
	}
	if key == "" {
		key = defaultObjectName
	}

	replaced := h.exists(c.UserContext(), bucket, key)

	url, err := fsx.PutFileHeader(c.UserContext(), h.store, bucket, key, file)
	if err != nil {
		logx.WithContext(c.UserContext()).WithError(err).WithFields(logx.Fields{
			"bucket": bucket,
			"key":    key,
		}).Warn("upload failed")
		return err
	}

	if replaced {
		logx.WithContext(c.UserContext()).WithFields(logx.Fields{
			"bucket": bucket,
			"key":    key,
		}).Info("upload replaced existing object")
	}

	return c.JSON(fiber.Map{"url": url, "replaced": replaced})
}

// exists reports whether bucket/key already holds an object. Invalid input
// and lookup failures count as absent; PutFileHeader reports the former.
func (h *UploadHandler) exists(ctx context.Context, bucket, key string) bool {
	if !fsx.ValidBucket(bucket) {
		return false
	}
	clean, err := fsx.CleanKey(key)
	if err != nil {
		return false
	}
	ok, err := h.store.Exists(ctx, bucket, clean)
	if err != nil {
		logx.WithContext(ctx).WithError(err).Warn("upload existence check failed")
		return false
	}
	return ok
}
