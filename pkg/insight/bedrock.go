package insight

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/musterhq/muster/pkg/prompt"
)

type bedrockAPI interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockConverser implements Converser on the Bedrock Converse API.
type BedrockConverser struct {
	api bedrockAPI
}

// NewBedrockConverser builds the adapter for region. The default
// credential chain applies unless optFns override it.
func NewBedrockConverser(ctx context.Context, region string, optFns ...func(*awsconfig.LoadOptions) error) (*BedrockConverser, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, append([]func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}, optFns...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &BedrockConverser{api: bedrockruntime.NewFromConfig(cfg)}, nil
}

func (c *BedrockConverser) Converse(ctx context.Context, b prompt.Bundle) (string, error) {
	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.ModelID),
		Messages: []brtypes.Message{{
			Role: brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: b.UserText},
			},
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(b.Params.MaxOutputTokens)),
			Temperature: aws.Float32(float32(b.Params.Temperature)),
			TopP:        aws.Float32(float32(b.Params.TopP)),
		},
	}
	if b.SystemText != "" {
		in.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: b.SystemText},
		}
	}

	out, err := c.api.Converse(ctx, in)
	if err != nil {
		return "", fmt.Errorf("converse failed: %w", err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return "", errors.New("converse returned no message content")
	}
	text, ok := msg.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return "", errors.New("converse returned a non-text content block")
	}
	return text.Value, nil
}

// retryableBedrock reports whether a Bedrock error is worth another
// attempt within the retry envelope.
func retryableBedrock(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailableException",
			"ModelTimeoutException", "InternalServerException", "ModelNotReadyException":
			return true
		}
	}
	return false
}
