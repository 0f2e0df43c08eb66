package insight

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/musterhq/muster/pkg/prompt"
)

// AnthropicConverser implements Converser on the Anthropic Messages
// API, for deployments that talk to the API directly instead of
// through Bedrock.
type AnthropicConverser struct {
	client anthropic.Client
}

// NewAnthropicConverser builds the adapter. ANTHROPIC_API_KEY in the
// environment takes precedence inside the SDK's own option chain, so
// apiKey may be empty there.
func NewAnthropicConverser(apiKey string) (*AnthropicConverser, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key required")
	}
	return &AnthropicConverser{client: anthropic.NewClient(option.WithAPIKey(apiKey))}, nil
}

func (c *AnthropicConverser) Converse(ctx context.Context, b prompt.Bundle) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(b.ModelID),
		MaxTokens:   int64(b.Params.MaxOutputTokens),
		Temperature: anthropic.Float(b.Params.Temperature),
		TopP:        anthropic.Float(b.Params.TopP),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(b.UserText)),
		},
	}
	if b.SystemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: b.SystemText}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("messages.new failed: %w", err)
	}
	if len(message.Content) == 0 {
		return "", errors.New("response carried no content blocks")
	}
	content := message.Content[0]
	if content.Type != "text" {
		return "", fmt.Errorf("response is not a text block (type=%s)", content.Type)
	}
	return content.Text, nil
}

func retryableAnthropic(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
