package ocr

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	textracttypes "github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedTextract simulates a job whose results span several pages
// linked by continuation tokens.
type pagedTextract struct {
	pages   [][]textracttypes.Block
	fetches int
}

func (f *pagedTextract) StartDocumentTextDetection(ctx context.Context, in *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error) {
	return &textract.StartDocumentTextDetectionOutput{JobId: aws.String("job-1")}, nil
}

func (f *pagedTextract) GetDocumentTextDetection(ctx context.Context, in *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error) {
	page := 0
	if in.NextToken != nil {
		var err error
		page, err = strconv.Atoi(*in.NextToken)
		if err != nil {
			return nil, err
		}
	}
	f.fetches++
	out := &textract.GetDocumentTextDetectionOutput{
		JobStatus: textracttypes.JobStatusSucceeded,
		Blocks:    f.pages[page],
	}
	if page+1 < len(f.pages) {
		out.NextToken = aws.String(strconv.Itoa(page + 1))
	}
	return out, nil
}

func TestFetchAllFollowsEveryToken(t *testing.T) {
	fake := &pagedTextract{
		pages: [][]textracttypes.Block{
			{
				{BlockType: textracttypes.BlockTypeLine, Text: aws.String("line one")},
				{BlockType: textracttypes.BlockTypeWord, Text: aws.String("line")},
			},
			{
				{BlockType: textracttypes.BlockTypeLine, Text: aws.String("line two")},
			},
			{
				{BlockType: textracttypes.BlockTypeLine, Text: aws.String("line three")},
			},
		},
	}
	c := &TextractClient{api: fake}

	fetched := testutil.ToFloat64(metrics.OCRBlocksFetched)
	blocks, err := c.FetchAll(context.Background(), "job-1")
	require.NoError(t, err)

	// Exactly the union of all pages, in delivery order.
	assert.Len(t, blocks, 4)
	assert.Equal(t, 3, fake.fetches)
	assert.Equal(t, "line one\nline two\nline three", PlainText(blocks))

	// The adapter owns the block counter; each block counts once.
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.OCRBlocksFetched)-fetched)
}

func TestPollStates(t *testing.T) {
	cases := []struct {
		status textracttypes.JobStatus
		want   PollState
	}{
		{textracttypes.JobStatusInProgress, StatePending},
		{textracttypes.JobStatusSucceeded, StateSucceeded},
		{textracttypes.JobStatusPartialSuccess, StateSucceeded},
		{textracttypes.JobStatusFailed, StateFailed},
	}
	for _, tc := range cases {
		c := &TextractClient{api: &staticTextract{status: tc.status}}
		res, err := c.Poll(context.Background(), "job-1")
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.State, string(tc.status))
	}
}

type staticTextract struct {
	status textracttypes.JobStatus
}

func (f *staticTextract) StartDocumentTextDetection(ctx context.Context, in *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error) {
	return &textract.StartDocumentTextDetectionOutput{JobId: aws.String("job-1")}, nil
}

func (f *staticTextract) GetDocumentTextDetection(ctx context.Context, in *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error) {
	return &textract.GetDocumentTextDetectionOutput{
		JobStatus:     f.status,
		StatusMessage: aws.String("boom"),
	}, nil
}

func TestArtifactWriter(t *testing.T) {
	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	w := NewArtifactWriter(store, "originals")
	ctx := context.Background()

	blocks := []types.Block{
		{Type: types.BlockPage, Confidence: 0},
		{Type: types.BlockLine, Text: "BRANCH OF SERVICE", Confidence: 99},
		{Type: types.BlockLine, Text: "ARMY", Confidence: 97},
		{Type: types.BlockWord, Text: "ARMY", Confidence: 97},
	}
	fields := map[string]string{"service_branch": "ARMY"}

	out, err := w.Write(ctx, "doc-1", "job-1", blocks, fields)
	require.NoError(t, err)

	assert.Equal(t, "textract-results/doc-1/full_text.txt", out.TextRef.Key)
	assert.False(t, out.TextTruncated)
	assert.Equal(t, "BRANCH OF SERVICE\nARMY", out.InlineText)

	assert.Equal(t, 4, out.Stats.TotalBlocks)
	assert.Equal(t, 2, out.Stats.Lines)
	assert.Equal(t, 1, out.Stats.Words)
	assert.Equal(t, 2, out.Stats.DataPoints)
	assert.Equal(t, 1, out.Stats.FieldsIdentified)
	// (99 + 97 + 97) / 3, full precision, as a string.
	assert.Equal(t, "97.66666666666667", out.Stats.Confidence)

	// Summary artifact has the contract shape.
	raw, err := store.Get(ctx, "originals", "textract-results/doc-1/extraction_summary.json")
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, "doc-1", summary["documentId"])
	assert.Contains(t, summary, "extractedData")
	assert.Contains(t, summary, "statistics")
	assert.Contains(t, summary, "rawTextPreview")
	assert.Contains(t, summary, "timestamp")

	// Full results carries the job handle and every block.
	raw, err = store.Get(ctx, "originals", "textract-results/doc-1/full_results.json")
	require.NoError(t, err)
	var results fullResultsArtifact
	require.NoError(t, json.Unmarshal(raw, &results))
	assert.Equal(t, "job-1", results.JobID)
	assert.Equal(t, 4, results.BlockCount)
}

func TestArtifactWriterTruncation(t *testing.T) {
	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	w := NewArtifactWriter(store, "originals")

	long := strings.Repeat("THIS LINE HAS FORTY CHARACTERS OF TEXT!!", 10)
	var blocks []types.Block
	for i := 0; i < 200; i++ {
		blocks = append(blocks, types.Block{Type: types.BlockLine, Text: long[:40], Confidence: 90})
	}

	out, err := w.Write(context.Background(), "doc-2", "job-2", blocks, nil)
	require.NoError(t, err)

	assert.True(t, out.TextTruncated)
	assert.Empty(t, out.InlineText)

	// The full text stays retrievable through the pointer.
	full, err := store.Get(context.Background(), "originals", out.TextRef.Key)
	require.NoError(t, err)
	assert.Greater(t, len(full), MaxInlineTextChars)

	// Preview is bounded and marked.
	raw, err := store.Get(context.Background(), "originals", out.SummaryRef.Key)
	require.NoError(t, err)
	var summary extractionSummaryArtifact
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.LessOrEqual(t, len(summary.RawTextPreview), previewLimit+3)
	assert.True(t, strings.HasSuffix(summary.RawTextPreview, "..."))
}
