package blob

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no object exists at a key.
	ErrNotFound = errors.New("object not found")
)

// Presign TTL ceilings. Requests above these are clamped.
const (
	MaxPresignGetTTL = time.Hour
	MaxPresignPutTTL = 5 * time.Minute
)

// PutOptions controls a single Put.
type PutOptions struct {
	ContentType string
	// Encrypt requests server-side encryption at rest. Required for
	// originals and redacted artifacts.
	Encrypt  bool
	Metadata map[string]string
}

// Info describes an object without its body.
type Info struct {
	SizeBytes   int64
	ContentType string
}

// Store is the content store addressed by {bucket, key}.
type Store interface {
	Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Head(ctx context.Context, bucket, key string) (*Info, error)
	Delete(ctx context.Context, bucket, key string) error

	// PresignPut returns a URL that accepts a single upload for at
	// most ttl (clamped to MaxPresignPutTTL).
	PresignPut(ctx context.Context, bucket, key string, ttl time.Duration, contentType string) (string, error)

	// PresignGet returns a read URL valid for at most ttl (clamped to
	// MaxPresignGetTTL).
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

func clampTTL(ttl, ceiling time.Duration) time.Duration {
	if ttl <= 0 || ttl > ceiling {
		return ceiling
	}
	return ttl
}
