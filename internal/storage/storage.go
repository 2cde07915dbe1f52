package storage

import (
	"context"
	"time"
)

// FileStorage keeps binary objects under generated keys. Keys are private;
// clients only ever see short-lived presigned URLs.
type FileStorage interface {
	// Upload stores data under prefix and returns the generated object key.
	Upload(ctx context.Context, prefix string, data []byte, filename string) (string, error)

	Delete(ctx context.Context, key string) error

	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
