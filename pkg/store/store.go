package store

import (
	"errors"
	"time"

	"github.com/musterhq/muster/pkg/types"
)

var (
	// ErrNotFound is returned when no record exists for a document id.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by Create for a duplicate document id.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict is returned when a compare-and-set update loses the race.
	ErrConflict = errors.New("record update conflict")
)

// ArtifactKind names a pointer field on the document record.
type ArtifactKind string

const (
	ArtifactExtractedText ArtifactKind = "extracted_text"
	ArtifactRedacted      ArtifactKind = "redacted"
	ArtifactInsights      ArtifactKind = "insights"
)

// Store is the durable per-document record store. It is the single
// source of truth for pipeline progress; orchestrator state in memory
// is only a cache of it.
//
// Single-record updates are atomic and durable on success. There is no
// multi-record transaction.
type Store interface {
	// Create inserts the initial record. Returns ErrAlreadyExists if a
	// record with the same document id is present.
	Create(rec *types.DocumentRecord) error

	// Get returns the record or ErrNotFound.
	Get(documentID string) (*types.DocumentRecord, error)

	// Update writes rec back using compare-and-set on UpdatedAt.
	// Returns ErrConflict when the stored record has moved on; callers
	// re-read, re-apply, and retry.
	Update(rec *types.DocumentRecord) error

	// Mutate runs fn against the current record inside one atomic
	// read-modify-write. UpdatedAt is bumped and status re-derived
	// after fn returns.
	Mutate(documentID string, fn func(*types.DocumentRecord) error) (*types.DocumentRecord, error)

	// UpdateStep transitions one step, enforcing the step state
	// machine: complete is only reachable from in_progress, and a
	// complete step never regresses.
	UpdateStep(documentID string, step types.StepName, state types.StepStatus, errorMessage string) (*types.DocumentRecord, error)

	// SetArtifactRef idempotently sets one of the artifact pointers.
	SetArtifactRef(documentID string, kind ArtifactKind, ref *types.BlobRef) error

	// Scan returns all records whose TTL is at or before cutoff.
	Scan(cutoff time.Time) ([]*types.DocumentRecord, error)

	// List returns every record. Used by the metrics collector and the
	// resume scan, not by stage code.
	List() ([]*types.DocumentRecord, error)

	// Delete removes the record and any stored insights row.
	Delete(documentID string) error

	// PutInsights stores the rendered insight artifact in the
	// insights-only bucket, keyed by document id.
	PutInsights(documentID string, artifact []byte) error

	// GetInsights returns the stored insight artifact or ErrNotFound.
	GetInsights(documentID string) ([]byte, error)

	Close() error
}
