package pii

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	comprehendtypes "github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	"github.com/musterhq/muster/pkg/types"
)

// ClassifierInputLimit is the slice of text submitted to the external
// entity recognizer. The first 5,000 characters of a DD214 cover the
// PII-bearing boxes.
const ClassifierInputLimit = 5000

// Classifier is an external PII entity recognizer. Output augments
// pattern findings, never replaces them.
type Classifier interface {
	DetectEntities(ctx context.Context, text string) ([]types.Finding, error)
}

type comprehendAPI interface {
	DetectPiiEntities(ctx context.Context, in *comprehend.DetectPiiEntitiesInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectPiiEntitiesOutput, error)
}

// ComprehendClassifier implements Classifier with Amazon Comprehend.
type ComprehendClassifier struct {
	api comprehendAPI
}

// NewComprehendClassifier builds the classifier for region. The
// default credential chain applies unless optFns override it.
func NewComprehendClassifier(ctx context.Context, region string, optFns ...func(*awsconfig.LoadOptions) error) (*ComprehendClassifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, append([]func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}, optFns...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &ComprehendClassifier{api: comprehend.NewFromConfig(cfg)}, nil
}

func (c *ComprehendClassifier) DetectEntities(ctx context.Context, text string) ([]types.Finding, error) {
	if len(text) > ClassifierInputLimit {
		text = text[:ClassifierInputLimit]
	}
	out, err := c.api.DetectPiiEntities(ctx, &comprehend.DetectPiiEntitiesInput{
		Text:         aws.String(text),
		LanguageCode: comprehendtypes.LanguageCodeEn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect pii entities: %w", err)
	}

	var findings []types.Finding
	for _, e := range out.Entities {
		f := types.Finding{
			Kind:   kindForEntity(e.Type),
			Source: types.SourceClassifier,
		}
		if e.Score != nil {
			f.Confidence = float64(*e.Score)
		}
		if e.BeginOffset != nil && e.EndOffset != nil {
			f.Span = &types.Span{Start: int(*e.BeginOffset), End: int(*e.EndOffset)}
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func kindForEntity(t comprehendtypes.PiiEntityType) types.FindingKind {
	switch t {
	case comprehendtypes.PiiEntityTypeSsn:
		return types.FindingSSN
	case comprehendtypes.PiiEntityTypeEmail:
		return types.FindingEmail
	case comprehendtypes.PiiEntityTypePhone:
		return types.FindingPhone
	case comprehendtypes.PiiEntityTypeAddress:
		return types.FindingAddress
	case comprehendtypes.PiiEntityTypeName:
		return types.FindingName
	case comprehendtypes.PiiEntityTypeDateTime:
		return types.FindingDateOfBirth
	default:
		return types.FindingOther
	}
}
