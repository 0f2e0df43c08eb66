package blob

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadKeyRoundTrip(t *testing.T) {
	now := time.Date(2026, 6, 26, 12, 34, 56, 0, time.UTC)
	key := UploadKey("owner-7", "3f2b8c1a", ".pdf", now)
	assert.Equal(t, "uploads/owner-7/20260626_123456_3f2b8c1a.pdf", key)

	owner, doc, ok := ParseUploadKey(key)
	require.True(t, ok)
	assert.Equal(t, "owner-7", owner)
	assert.Equal(t, "3f2b8c1a", doc)
}

func TestParseUploadKeyUUIDDocumentID(t *testing.T) {
	key := "uploads/vet-123/20250101_000000_a81bc81b-dead-4e5d-abff-90865d1e13b1.jpeg"
	owner, doc, ok := ParseUploadKey(key)
	require.True(t, ok)
	assert.Equal(t, "vet-123", owner)
	assert.Equal(t, "a81bc81b-dead-4e5d-abff-90865d1e13b1", doc)
}

func TestParseUploadKeyRejects(t *testing.T) {
	cases := []string{
		"redacted/doc-1/dd214_redacted.txt",          // wrong prefix
		"uploads/owner/20250101_000000_doc.exe",      // bad extension
		"uploads/owner/not-a-timestamp_doc.pdf",      // malformed timestamp
		"uploads/20250101_000000_doc.pdf",            // missing owner segment
		"uploads/owner/extra/20250101_000000_d.pdf",  // nested path
		"textract-results/doc-1/full_text.txt",       // artifact key
	}
	for _, key := range cases {
		_, _, ok := ParseUploadKey(key)
		assert.False(t, ok, "expected rejection: %s", key)
	}
}

func TestArtifactKeys(t *testing.T) {
	assert.Equal(t, "textract-results/doc-1/full_results.json", FullResultsKey("doc-1"))
	assert.Equal(t, "textract-results/doc-1/full_text.txt", FullTextKey("doc-1"))
	assert.Equal(t, "textract-results/doc-1/extraction_summary.json", ExtractionSummaryKey("doc-1"))
	assert.Equal(t, "redacted/doc-1/dd214_redacted.txt", RedactedKey("doc-1"))
	assert.Len(t, DocumentKeys("doc-1"), 4)
}

func TestIsUploadPrefix(t *testing.T) {
	assert.True(t, IsUploadPrefix("uploads/owner/file.pdf"))
	assert.False(t, IsUploadPrefix("redacted/doc/file.txt"))
}
