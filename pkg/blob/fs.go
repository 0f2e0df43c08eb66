package blob

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FSStore implements Store on the local filesystem, laid out as
// root/{bucket}/{key}. It backs non-AWS deployments and tests. The
// Encrypt option is a no-op here; at-rest protection is delegated to
// the volume.
type FSStore struct {
	root string
}

// NewFSStore creates the store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Root returns the store's root directory.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) objectPath(bucket, key string) (string, error) {
	p := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	// Keys are internally generated, but refuse traversal anyway.
	if !strings.HasPrefix(p, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("key escapes blob root: %q", key)
	}
	return p, nil
}

func (s *FSStore) Put(ctx context.Context, bucket, key string, body []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}
	// Write-then-rename so watchers never observe partial objects.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, body, 0640); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

func (s *FSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (s *FSStore) Head(ctx context.Context, bucket, key string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return &Info{SizeBytes: fi.Size()}, nil
}

func (s *FSStore) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PresignPut returns a file URL carrying an expiry query parameter.
// The fs backend has no out-of-process upload path; callers in local
// deployments write through Put directly, and the URL exists so the
// control surface keeps one shape across backends.
func (s *FSStore) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration, contentType string) (string, error) {
	return s.fileURL(bucket, key, clampTTL(ttl, MaxPresignPutTTL))
}

func (s *FSStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return s.fileURL(bucket, key, clampTTL(ttl, MaxPresignGetTTL))
}

func (s *FSStore) fileURL(bucket, key string, ttl time.Duration) (string, error) {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "file",
		Path:     p,
		RawQuery: url.Values{"expires": {time.Now().UTC().Add(ttl).Format(time.RFC3339)}}.Encode(),
	}
	return u.String(), nil
}
