package ocr

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	textracttypes "github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/musterhq/muster/pkg/metrics"
	"github.com/musterhq/muster/pkg/types"
)

// textractAPI is the slice of the Textract client the adapter uses.
type textractAPI interface {
	StartDocumentTextDetection(ctx context.Context, in *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error)
	GetDocumentTextDetection(ctx context.Context, in *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error)
}

// TextractClient implements Client against Amazon Textract's async
// text detection API.
type TextractClient struct {
	api textractAPI
}

// NewTextractClient builds the adapter for region. The default
// credential chain applies unless optFns override it.
func NewTextractClient(ctx context.Context, region string, optFns ...func(*awsconfig.LoadOptions) error) (*TextractClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, append([]func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}, optFns...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &TextractClient{api: textract.NewFromConfig(cfg)}, nil
}

func (c *TextractClient) Start(ctx context.Context, ref types.BlobRef) (string, error) {
	out, err := c.api.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
		DocumentLocation: &textracttypes.DocumentLocation{
			S3Object: &textracttypes.S3Object{
				Bucket: aws.String(ref.Bucket),
				Name:   aws.String(ref.Key),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to start text detection: %w", err)
	}
	return aws.ToString(out.JobId), nil
}

func (c *TextractClient) Poll(ctx context.Context, handle string) (PollResult, error) {
	metrics.OCRPollsTotal.Inc()

	out, err := c.api.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
		JobId:      aws.String(handle),
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to poll job %s: %w", handle, err)
	}

	switch out.JobStatus {
	case textracttypes.JobStatusInProgress:
		return PollResult{State: StatePending}, nil
	case textracttypes.JobStatusSucceeded, textracttypes.JobStatusPartialSuccess:
		return PollResult{State: StateSucceeded}, nil
	case textracttypes.JobStatusFailed:
		return PollResult{State: StateFailed, Reason: aws.ToString(out.StatusMessage)}, nil
	default:
		return PollResult{}, fmt.Errorf("job %s: unexpected status %q", handle, out.JobStatus)
	}
}

// FetchAll pages through the result set until no continuation token
// remains. A truncated prefix is never returned: any page failure
// fails the whole fetch.
func (c *TextractClient) FetchAll(ctx context.Context, handle string) ([]types.Block, error) {
	var blocks []types.Block
	var nextToken *string

	for {
		out, err := c.api.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
			JobId:     aws.String(handle),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch results for job %s: %w", handle, err)
		}
		if out.JobStatus == textracttypes.JobStatusFailed {
			return nil, fmt.Errorf("job %s failed: %s", handle, aws.ToString(out.StatusMessage))
		}

		for _, b := range out.Blocks {
			blocks = append(blocks, fromTextractBlock(b))
		}
		metrics.OCRBlocksFetched.Add(float64(len(out.Blocks)))

		if out.NextToken == nil {
			return blocks, nil
		}
		nextToken = out.NextToken
	}
}

// Cancel is unsupported: Textract exposes no cancel operation for
// text detection jobs.
func (c *TextractClient) Cancel(ctx context.Context, handle string) error {
	return ErrCancelUnsupported
}

func fromTextractBlock(b textracttypes.Block) types.Block {
	out := types.Block{
		Type: types.BlockType(b.BlockType),
		Text: aws.ToString(b.Text),
		ID:   aws.ToString(b.Id),
	}
	if b.Confidence != nil {
		out.Confidence = float64(*b.Confidence)
	}
	if b.Page != nil {
		out.Page = *b.Page
	}
	return out
}
