package store

import (
	"testing"
	"time"

	"github.com/musterhq/muster/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	rec := types.NewRecord("doc-1", "owner-1", 90*24*time.Hour)
	require.NoError(t, s.Create(rec))

	got, err := s.Get("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, types.StatusPendingUpload, got.Status)
	assert.Len(t, got.Steps, len(types.PipelineSteps))
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t)

	rec := types.NewRecord("doc-1", "owner-1", time.Hour)
	require.NoError(t, s.Create(rec))

	err := s.Create(types.NewRecord("doc-1", "owner-2", time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateConflict(t *testing.T) {
	s := newTestStore(t)

	rec := types.NewRecord("doc-1", "owner-1", time.Hour)
	require.NoError(t, s.Create(rec))

	// A concurrent mutation moves UpdatedAt forward.
	_, err := s.Mutate("doc-1", func(r *types.DocumentRecord) error {
		r.OwnerEmail = "vet@example.com"
		return nil
	})
	require.NoError(t, err)

	// The stale copy must lose the compare-and-set.
	rec.Status = types.StatusProcessing
	err = s.Update(rec)
	assert.ErrorIs(t, err, ErrConflict)

	// Re-read and retry succeeds.
	fresh, err := s.Get("doc-1")
	require.NoError(t, err)
	fresh.Status = types.StatusProcessing
	assert.NoError(t, s.Update(fresh))
}

func TestUpdateStepTransitions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(types.NewRecord("doc-1", "owner-1", time.Hour)))

	// pending -> complete is rejected.
	_, err := s.UpdateStep("doc-1", types.StepOCR, types.StepComplete, "")
	assert.Error(t, err)

	// pending -> in_progress -> complete.
	rec, err := s.UpdateStep("doc-1", types.StepOCR, types.StepInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, types.StepInProgress, rec.Steps[types.StepOCR].State)
	assert.NotNil(t, rec.Steps[types.StepOCR].StartedAt)

	rec, err = s.UpdateStep("doc-1", types.StepOCR, types.StepComplete, "")
	require.NoError(t, err)
	assert.Equal(t, types.StepComplete, rec.Steps[types.StepOCR].State)
	assert.NotNil(t, rec.Steps[types.StepOCR].CompletedAt)

	// A complete step never regresses to in_progress.
	rec, err = s.UpdateStep("doc-1", types.StepOCR, types.StepInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, types.StepComplete, rec.Steps[types.StepOCR].State)

	// And never errors afterwards.
	_, err = s.UpdateStep("doc-1", types.StepOCR, types.StepError, "late failure")
	assert.Error(t, err)
}

func TestStatusDerivation(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(types.NewRecord("doc-1", "owner-1", time.Hour)))

	for _, step := range []types.StepName{types.StepUpload, types.StepValidation, types.StepOCR} {
		_, err := s.UpdateStep("doc-1", step, types.StepInProgress, "")
		require.NoError(t, err)
		_, err = s.UpdateStep("doc-1", step, types.StepComplete, "")
		require.NoError(t, err)
	}

	rec, err := s.Get("doc-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusTextractComplete, rec.Status)

	_, err = s.UpdateStep("doc-1", types.StepPIIDetection, types.StepInProgress, "")
	require.NoError(t, err)
	rec, err = s.UpdateStep("doc-1", types.StepPIIDetection, types.StepError, "classifier exploded")
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, rec.Status)
	assert.Equal(t, "classifier exploded", rec.Steps[types.StepPIIDetection].ErrorMessage)
}

func TestStatusNeverRunsAheadOfSteps(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(types.NewRecord("doc-2", "owner-1", time.Hour)))

	advance := func(step types.StepName) *types.DocumentRecord {
		_, err := s.UpdateStep("doc-2", step, types.StepInProgress, "")
		require.NoError(t, err)
		rec, err := s.UpdateStep("doc-2", step, types.StepComplete, "")
		require.NoError(t, err)
		return rec
	}

	for _, step := range []types.StepName{types.StepUpload, types.StepValidation, types.StepOCR} {
		advance(step)
	}

	// Detection completing leaves the status at the OCR milestone until
	// the redacted artifact exists.
	rec := advance(types.StepPIIDetection)
	assert.Equal(t, types.StatusTextractComplete, rec.Status)
	assert.Equal(t, types.StepPending, rec.Steps[types.StepRedaction].State)

	rec = advance(types.StepRedaction)
	assert.Equal(t, types.StatusMacieComplete, rec.Status)
	assert.Equal(t, types.StepPending, rec.Steps[types.StepInsights].State)

	rec = advance(types.StepInsights)
	assert.Equal(t, types.StatusInsightsComplete, rec.Status)

	rec, err := s.Mutate("doc-2", func(r *types.DocumentRecord) error {
		now := time.Now().UTC()
		r.CompletedAt = &now
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, rec.Status)
}

func TestSetArtifactRefIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(types.NewRecord("doc-1", "owner-1", time.Hour)))

	ref := &types.BlobRef{Bucket: "redacted-bucket", Key: "redacted/doc-1/dd214_redacted.txt"}
	require.NoError(t, s.SetArtifactRef("doc-1", ArtifactRedacted, ref))
	require.NoError(t, s.SetArtifactRef("doc-1", ArtifactRedacted, ref))

	rec, err := s.Get("doc-1")
	require.NoError(t, err)
	assert.Equal(t, ref, rec.RedactedRef)
}

func TestScanAndDelete(t *testing.T) {
	s := newTestStore(t)

	old := types.NewRecord("doc-old", "owner-1", time.Hour)
	old.TTL = time.Now().Add(-time.Hour)
	require.NoError(t, s.Create(old))
	require.NoError(t, s.Create(types.NewRecord("doc-new", "owner-1", 24*time.Hour)))

	expired, err := s.Scan(time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "doc-old", expired[0].DocumentID)

	require.NoError(t, s.Delete("doc-old"))
	_, err = s.Get("doc-old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsightsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(types.NewRecord("doc-1", "owner-1", time.Hour)))

	artifact := []byte(`{"generated_at":"2026-01-02T03:04:05Z"}`)
	require.NoError(t, s.PutInsights("doc-1", artifact))

	got, err := s.GetInsights("doc-1")
	require.NoError(t, err)
	assert.Equal(t, artifact, got)

	require.NoError(t, s.Delete("doc-1"))
	_, err = s.GetInsights("doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
