package completions

import (
	"context"
	"strings"

	"github.com/Egham-7/adaptive-relay/internal/models"

	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// completeOpenAI calls an OpenAI-compatible /chat/completions endpoint
func (s *Service) completeOpenAI(ctx context.Context, req models.CompletionRequest) (string, error) {
	client, _ := s.openaiClients.Get(clientKey(req), func() (openai.Client, error) {
		opts := []openaiOption.RequestOption{
			openaiOption.WithBaseURL(req.BaseURL),
			openaiOption.WithHTTPClient(s.httpClient),
			openaiOption.WithMaxRetries(0),
		}
		if req.APIKey != "" {
			opts = append(opts, openaiOption.WithAPIKey(req.APIKey))
		}
		return openai.NewClient(opts...), nil
	})

	callOpts := make([]openaiOption.RequestOption, 0, len(req.Parameters))
	for _, kv := range req.Parameters {
		callOpts = append(callOpts, openaiOption.WithJSONSet(jsonSetKey(kv.Key), kv.Value.Any()))
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Message),
		},
	}

	resp, err := client.Chat.Completions.New(ctx, params, callOpts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errNoChoices
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
