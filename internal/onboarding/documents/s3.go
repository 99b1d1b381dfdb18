// internal/onboarding/documents/s3.go
package documents

import (
	"context"

	"carrier-onboarding/internal/common/aws"
)

// S3Storage backs the tracker with an S3 bucket.
type S3Storage struct {
	client *aws.S3Client
}

func NewS3Storage(client *aws.S3Client) *S3Storage {
	return &S3Storage{client: client}
}

func (s *S3Storage) Store(ctx context.Context, key string, data []byte) (string, error) {
	return s.client.PutObject(ctx, key, data)
}

func (s *S3Storage) Remove(ctx context.Context, key string) error {
	return s.client.DeleteObject(ctx, key)
}
