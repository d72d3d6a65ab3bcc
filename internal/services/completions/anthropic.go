package completions

import (
	"context"
	"strings"

	"github.com/Egham-7/adaptive-relay/internal/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultAnthropicMaxTokens fills the field the Messages API requires.
// A max_tokens parameter in the command overrides it.
const defaultAnthropicMaxTokens = 1024

// completeAnthropic calls an Anthropic Messages endpoint
func (s *Service) completeAnthropic(ctx context.Context, req models.CompletionRequest) (string, error) {
	client, _ := s.anthropicClients.Get(clientKey(req), func() (anthropic.Client, error) {
		opts := []option.RequestOption{
			option.WithBaseURL(req.BaseURL),
			option.WithHTTPClient(s.httpClient),
			option.WithMaxRetries(0),
		}
		if req.APIKey != "" {
			opts = append(opts, option.WithAPIKey(req.APIKey))
		}
		return anthropic.NewClient(opts...), nil
	})

	callOpts := make([]option.RequestOption, 0, len(req.Parameters))
	for _, kv := range req.Parameters {
		callOpts = append(callOpts, option.WithJSONSet(jsonSetKey(kv.Key), kv.Value.Any()))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: defaultAnthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Message)),
		},
	}

	message, err := client.Messages.New(ctx, params, callOpts...)
	if err != nil {
		return "", err
	}
	if message == nil || len(message.Content) == 0 {
		return "", errNoChoices
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
