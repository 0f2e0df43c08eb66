package redact

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/log"
	"github.com/musterhq/muster/pkg/types"
)

// Redactor applies findings to OCR text and persists the framed
// artifact in the redacted bucket.
type Redactor struct {
	blobs  blob.Store
	bucket string
	now    func() time.Time
}

func New(blobs blob.Store, bucket string) *Redactor {
	return &Redactor{blobs: blobs, bucket: bucket, now: time.Now}
}

// Write redacts text and stores the artifact for documentID. An empty
// text writes the fixed placeholder body with zero findings applied so
// downstream stages stay unblocked.
func (r *Redactor) Write(ctx context.Context, documentID, text string, findings []types.Finding) (types.BlobRef, int, error) {
	var res Result
	if text == "" {
		res = Result{Text: PlaceholderText}
		logger := log.WithDocumentID(documentID)
		logger.Warn().Msg("no source text available, writing placeholder redaction")
	} else {
		res = Apply(text, findings)
	}

	now := r.now()
	artifact := Frame(res.Text, res.ItemsRedacted, now)
	ref := types.BlobRef{Bucket: r.bucket, Key: blob.RedactedKey(documentID)}

	err := r.blobs.Put(ctx, ref.Bucket, ref.Key, []byte(artifact), blob.PutOptions{
		ContentType: "text/plain",
		Encrypt:     true,
		Metadata: map[string]string{
			"document-id":        documentID,
			"redaction-date":     now.UTC().Format(time.RFC3339),
			"pii-items-redacted": strconv.Itoa(res.ItemsRedacted),
		},
	})
	if err != nil {
		return types.BlobRef{}, 0, fmt.Errorf("failed to store redacted artifact: %w", err)
	}

	logger := log.WithDocumentID(documentID)
	logger.Info().
		Int("items_redacted", res.ItemsRedacted).
		Str("key", ref.Key).
		Msg("redacted artifact written")
	return ref, res.ItemsRedacted, nil
}
