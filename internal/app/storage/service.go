package storage

import (
	"context"
	"io"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// AttachmentStorage is the public interface for the attachment file store.
type AttachmentStorage interface {
	// Upload streams a file body to storage under the given key.
	Upload(ctx context.Context, key string, mimeType string, body io.Reader) error

	// PresignDownload generates a time-limited URL for downloading a file.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

// NewAttachmentStorage is the factory for AttachmentStorage. Only
// S3-compatible backends are implemented.
func NewAttachmentStorage(cfg ServiceConfig) (AttachmentStorage, error) {
	return newS3Client(cfg)
}
