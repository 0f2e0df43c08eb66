package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/types"
)

// MaxInlineTextChars bounds the text carried between stages inline.
// Longer text travels as a blob pointer with TextTruncated set.
const MaxInlineTextChars = 5000

const previewLimit = 500

// Stats summarizes one OCR result set.
type Stats struct {
	TotalBlocks int `json:"totalBlocksFound"`
	Lines       int `json:"totalLinesExtracted"`
	Words       int `json:"totalWordsExtracted"`
	// Confidence is the average block confidence, persisted as a
	// decimal string per the artifact contract.
	Confidence       string `json:"confidenceScore"`
	FieldsIdentified int    `json:"fieldsIdentified"`
	DataPoints       int    `json:"dataPoints"`
}

// Output is the result of persisting one OCR run.
type Output struct {
	ResultsRef types.BlobRef
	TextRef    types.BlobRef
	SummaryRef types.BlobRef
	Stats      Stats

	// InlineText holds the full text only when it fits the inline
	// budget; otherwise it is empty and TextTruncated is set.
	InlineText    string
	TextTruncated bool
}

type fullResultsArtifact struct {
	JobID      string        `json:"jobId"`
	BlockCount int           `json:"blockCount"`
	Blocks     []types.Block `json:"blocks"`
}

type extractionSummaryArtifact struct {
	DocumentID     string            `json:"documentId"`
	ExtractedData  map[string]string `json:"extractedData"`
	Statistics     Stats             `json:"statistics"`
	RawTextPreview string            `json:"rawTextPreview"`
	Timestamp      string            `json:"timestamp"`
}

// ArtifactWriter persists the three OCR artifacts for a document.
type ArtifactWriter struct {
	store  blob.Store
	bucket string
}

// NewArtifactWriter writes into bucket on store.
func NewArtifactWriter(store blob.Store, bucket string) *ArtifactWriter {
	return &ArtifactWriter{store: store, bucket: bucket}
}

// Write persists full_results.json, full_text.txt and
// extraction_summary.json, then returns their refs, the stats, and
// the inline text if it fits.
func (w *ArtifactWriter) Write(ctx context.Context, documentID, jobHandle string, blocks []types.Block, fields map[string]string) (*Output, error) {
	text := PlainText(blocks)
	stats := computeStats(blocks, fields)

	results, err := json.Marshal(fullResultsArtifact{
		JobID:      jobHandle,
		BlockCount: len(blocks),
		Blocks:     blocks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode full results: %w", err)
	}
	resultsKey := blob.FullResultsKey(documentID)
	if err := w.store.Put(ctx, w.bucket, resultsKey, results, blob.PutOptions{ContentType: "application/json"}); err != nil {
		return nil, err
	}

	textKey := blob.FullTextKey(documentID)
	if err := w.store.Put(ctx, w.bucket, textKey, []byte(text), blob.PutOptions{ContentType: "text/plain"}); err != nil {
		return nil, err
	}

	summary, err := json.Marshal(extractionSummaryArtifact{
		DocumentID:     documentID,
		ExtractedData:  fields,
		Statistics:     stats,
		RawTextPreview: preview(text),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction summary: %w", err)
	}
	summaryKey := blob.ExtractionSummaryKey(documentID)
	if err := w.store.Put(ctx, w.bucket, summaryKey, summary, blob.PutOptions{ContentType: "application/json"}); err != nil {
		return nil, err
	}

	out := &Output{
		ResultsRef: types.BlobRef{Bucket: w.bucket, Key: resultsKey},
		TextRef:    types.BlobRef{Bucket: w.bucket, Key: textKey},
		SummaryRef: types.BlobRef{Bucket: w.bucket, Key: summaryKey},
		Stats:      stats,
	}
	if len(text) > MaxInlineTextChars {
		out.TextTruncated = true
	} else {
		out.InlineText = text
	}
	return out, nil
}

func computeStats(blocks []types.Block, fields map[string]string) Stats {
	var lines, words, dataPoints int
	var confidenceSum float64
	var confidenceCount int

	for _, b := range blocks {
		switch b.Type {
		case types.BlockLine:
			lines++
			if b.Text != "" {
				dataPoints++
			}
		case types.BlockWord:
			words++
		}
		if b.Confidence > 0 {
			confidenceSum += b.Confidence
			confidenceCount++
		}
	}

	confidence := "0"
	if confidenceCount > 0 {
		confidence = strconv.FormatFloat(confidenceSum/float64(confidenceCount), 'f', -1, 64)
	}

	return Stats{
		TotalBlocks:      len(blocks),
		Lines:            lines,
		Words:            words,
		Confidence:       confidence,
		FieldsIdentified: len(fields),
		DataPoints:       dataPoints,
	}
}

func preview(text string) string {
	if len(text) <= previewLimit {
		return text
	}
	return text[:previewLimit] + "..."
}
