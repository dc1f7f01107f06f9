package fsxs3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Abraxas-365/jobgrid/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// API is the subset of the S3 client used here
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store implements fsx.ObjectStore on S3 buckets.
type S3Store struct {
	client        API
	region        string
	publicBaseURL string
}

// NewS3Store creates a store. When publicBaseURL is empty, public URLs use
// the virtual-hosted S3 form.
func NewS3Store(client API, region, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		region:        region,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fsx.ErrUploadFailed().WithCause(err).
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, fsx.ErrStatFailed().WithCause(err).WithDetail("key", key)
}

func (s *S3Store) PublicURL(bucket, key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + bucket + "/" + fsx.EscapeKey(key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, fsx.EscapeKey(key))
}
