package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/musterhq/muster/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRecords  = []byte("records")
	bucketInsights = []byte("insights")
)

// BoltStore implements Store using BoltDB. One bucket holds the
// document records as JSON values, a second holds the insights-only
// copies served to read handlers.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the store under dataDir. The file
// name defaults to muster.db when tableName is empty.
func NewBoltStore(dataDir, tableName string) (*BoltStore, error) {
	if tableName == "" {
		tableName = "muster.db"
	}
	dbPath := filepath.Join(dataDir, tableName)

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRecords, bucketInsights} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Create(rec *types.DocumentRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b.Get([]byte(rec.DocumentID)) != nil {
			return fmt.Errorf("document %s: %w", rec.DocumentID, ErrAlreadyExists)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.DocumentID), data)
	})
}

func (s *BoltStore) Get(documentID string) (*types.DocumentRecord, error) {
	var rec types.DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data := b.Get([]byte(documentID))
		if data == nil {
			return fmt.Errorf("document %s: %w", documentID, ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update is a compare-and-set write: it fails with ErrConflict unless
// the stored UpdatedAt still equals rec.UpdatedAt.
func (s *BoltStore) Update(rec *types.DocumentRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data := b.Get([]byte(rec.DocumentID))
		if data == nil {
			return fmt.Errorf("document %s: %w", rec.DocumentID, ErrNotFound)
		}
		var current types.DocumentRecord
		if err := json.Unmarshal(data, &current); err != nil {
			return err
		}
		if !current.UpdatedAt.Equal(rec.UpdatedAt) {
			return fmt.Errorf("document %s: %w", rec.DocumentID, ErrConflict)
		}
		rec.UpdatedAt = time.Now().UTC()
		out, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.DocumentID), out)
	})
}

func (s *BoltStore) Mutate(documentID string, fn func(*types.DocumentRecord) error) (*types.DocumentRecord, error) {
	var rec types.DocumentRecord
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		data := b.Get([]byte(documentID))
		if data == nil {
			return fmt.Errorf("document %s: %w", documentID, ErrNotFound)
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
		rec.UpdatedAt = time.Now().UTC()
		if derived := rec.DeriveStatus(); !derived.Before(rec.Status) {
			rec.Status = derived
		}
		out, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(documentID), out)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltStore) UpdateStep(documentID string, step types.StepName, state types.StepStatus, errorMessage string) (*types.DocumentRecord, error) {
	return s.Mutate(documentID, func(rec *types.DocumentRecord) error {
		st := rec.Step(step)
		switch state {
		case types.StepInProgress:
			if st.State == types.StepComplete {
				// A complete step never regresses.
				return nil
			}
			now := time.Now().UTC()
			st.State = types.StepInProgress
			if st.StartedAt == nil {
				st.StartedAt = &now
			}
		case types.StepComplete:
			if st.State != types.StepInProgress && st.State != types.StepComplete {
				return fmt.Errorf("step %s cannot complete from %s", step, st.State)
			}
			now := time.Now().UTC()
			st.State = types.StepComplete
			if st.CompletedAt == nil {
				st.CompletedAt = &now
			}
			st.ErrorMessage = ""
		case types.StepError:
			if st.State == types.StepComplete {
				return fmt.Errorf("step %s cannot error after completing", step)
			}
			st.State = types.StepError
			st.ErrorMessage = errorMessage
		case types.StepPending:
			return fmt.Errorf("step %s cannot transition back to pending", step)
		default:
			return fmt.Errorf("unknown step state: %q", state)
		}
		return nil
	})
}

func (s *BoltStore) SetArtifactRef(documentID string, kind ArtifactKind, ref *types.BlobRef) error {
	_, err := s.Mutate(documentID, func(rec *types.DocumentRecord) error {
		switch kind {
		case ArtifactExtractedText:
			rec.ExtractedTextRef = ref
		case ArtifactRedacted:
			rec.RedactedRef = ref
		case ArtifactInsights:
			rec.InsightsRef = ref
		default:
			return fmt.Errorf("unknown artifact kind: %q", kind)
		}
		return nil
	})
	return err
}

func (s *BoltStore) Scan(cutoff time.Time) ([]*types.DocumentRecord, error) {
	var expired []*types.DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		return b.ForEach(func(k, v []byte) error {
			var rec types.DocumentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if !rec.TTL.After(cutoff) {
				expired = append(expired, &rec)
			}
			return nil
		})
	})
	return expired, err
}

func (s *BoltStore) List() ([]*types.DocumentRecord, error) {
	var all []*types.DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		return b.ForEach(func(k, v []byte) error {
			var rec types.DocumentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			all = append(all, &rec)
			return nil
		})
	})
	return all, err
}

func (s *BoltStore) Delete(documentID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRecords).Delete([]byte(documentID)); err != nil {
			return err
		}
		return tx.Bucket(bucketInsights).Delete([]byte(documentID))
	})
}

func (s *BoltStore) PutInsights(documentID string, artifact []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInsights).Put([]byte(documentID), artifact)
	})
}

func (s *BoltStore) GetInsights(documentID string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketInsights).Get([]byte(documentID))
		if data == nil {
			return fmt.Errorf("insights for %s: %w", documentID, ErrNotFound)
		}
		out = append(out, data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
