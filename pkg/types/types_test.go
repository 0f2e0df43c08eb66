package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatusTracksCompletedSteps(t *testing.T) {
	rec := NewRecord("doc-1", "vet1", time.Hour)
	require.Equal(t, StatusPendingUpload, rec.DeriveStatus())

	complete := func(name StepName) {
		rec.Step(name).State = StepComplete
	}

	complete(StepUpload)
	assert.Equal(t, StatusUploaded, rec.DeriveStatus())

	complete(StepValidation)
	assert.Equal(t, StatusProcessing, rec.DeriveStatus())

	complete(StepOCR)
	assert.Equal(t, StatusTextractComplete, rec.DeriveStatus())

	// Detection alone is not a milestone; the status holds until the
	// redacted artifact exists.
	complete(StepPIIDetection)
	assert.Equal(t, StatusTextractComplete, rec.DeriveStatus())

	complete(StepRedaction)
	assert.Equal(t, StatusMacieComplete, rec.DeriveStatus())

	complete(StepInsights)
	assert.Equal(t, StatusInsightsComplete, rec.DeriveStatus())

	now := time.Now().UTC()
	rec.CompletedAt = &now
	assert.Equal(t, StatusComplete, rec.DeriveStatus())
}

func TestDeriveStatusErrorWins(t *testing.T) {
	rec := NewRecord("doc-2", "vet1", time.Hour)
	rec.Step(StepUpload).State = StepComplete
	rec.Step(StepOCR).State = StepError
	assert.Equal(t, StatusError, rec.DeriveStatus())
}

func TestDeriveStatusKeepsCurrentWhenNothingDone(t *testing.T) {
	rec := NewRecord("doc-3", "vet1", time.Hour)
	rec.Status = StatusProcessing
	assert.Equal(t, StatusProcessing, rec.DeriveStatus())
}

func TestStatusBefore(t *testing.T) {
	assert.True(t, StatusUploaded.Before(StatusMacieComplete))
	assert.False(t, StatusComplete.Before(StatusUploaded))
	assert.False(t, StatusError.Before(StatusComplete))
	assert.False(t, StatusComplete.Before(StatusError))
}
