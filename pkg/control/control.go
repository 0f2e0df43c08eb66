package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
)

var (
	// ErrNotReady is returned when a requested artifact has not been
	// produced yet. Callers poll the record and retry.
	ErrNotReady = errors.New("artifact not ready")
	// ErrUnsupportedType is returned for uploads outside the accepted
	// original formats.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// ProvisionRequest describes the upload being provisioned. OwnerEmail
// is optional and carried on the record for delivery of results.
type ProvisionRequest struct {
	OwnerID     string `json:"owner_id"`
	OwnerEmail  string `json:"owner_email"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// Upload is a provisioned upload slot.
type Upload struct {
	DocumentID string    `json:"document_id"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Service exposes the document procedures transports build on. It
// never reaches into pipeline internals; everything it serves comes
// from the record store and the blob store.
type Service struct {
	store  store.Store
	blobs  blob.Store
	bucket string
	ttl    time.Duration

	now   func() time.Time
	newID func() string
}

// NewService builds the control surface. bucket is where originals
// land; ttl is the record retention applied at provisioning.
func NewService(st store.Store, blobs blob.Store, bucket string, ttl time.Duration) *Service {
	return &Service{
		store:  st,
		blobs:  blobs,
		bucket: bucket,
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ProvisionUpload allocates a document id, creates the initial record,
// and returns a write-once upload URL for the original.
func (s *Service) ProvisionUpload(ctx context.Context, req ProvisionRequest) (*Upload, error) {
	if req.OwnerID == "" {
		return nil, errors.New("owner id is required")
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !blob.AllowedExtensions[ext] {
		return nil, fmt.Errorf("%q: %w", ext, ErrUnsupportedType)
	}

	documentID := s.newID()
	now := s.now()
	key := blob.UploadKey(req.OwnerID, documentID, ext, now)

	url, err := s.blobs.PresignPut(ctx, s.bucket, key, blob.MaxPresignPutTTL, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	rec := types.NewRecord(documentID, req.OwnerID, s.ttl)
	rec.OwnerEmail = req.OwnerEmail
	rec.SourceRef = &types.SourceRef{
		Bucket:           s.bucket,
		Key:              key,
		ContentType:      req.ContentType,
		OriginalFilename: req.Filename,
	}
	if err := s.store.Create(rec); err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return &Upload{
		DocumentID: documentID,
		UploadURL:  url,
		ExpiresAt:  now.UTC().Add(blob.MaxPresignPutTTL),
	}, nil
}

// GetRecord returns the current document record.
func (s *Service) GetRecord(documentID string) (*types.DocumentRecord, error) {
	return s.store.Get(documentID)
}

// GetRedacted returns a bounded-lifetime read URL for the redacted
// artifact, or ErrNotReady while redaction has not produced one.
func (s *Service) GetRedacted(ctx context.Context, documentID string) (string, error) {
	rec, err := s.store.Get(documentID)
	if err != nil {
		return "", err
	}
	if rec.RedactedRef == nil {
		return "", ErrNotReady
	}
	url, err := s.blobs.PresignGet(ctx, rec.RedactedRef.Bucket, rec.RedactedRef.Key, blob.MaxPresignGetTTL)
	if err != nil {
		return "", fmt.Errorf("failed to presign redacted artifact: %w", err)
	}
	return url, nil
}

// GetInsights returns the stored insight artifact, or ErrNotReady
// while the insights stage has not persisted one.
func (s *Service) GetInsights(documentID string) (json.RawMessage, error) {
	// The record is checked first so a missing document and a pending
	// artifact stay distinguishable.
	if _, err := s.store.Get(documentID); err != nil {
		return nil, err
	}
	data, err := s.store.GetInsights(documentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotReady
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
