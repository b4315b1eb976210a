package generation

import (
	"context"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

type openAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend talks to any OpenAI-compatible chat completion endpoint.
// An empty endpoint uses the public OpenAI API.
func NewOpenAIBackend(endpoint, model, token string, httpClient *http.Client) Backend {
	cfg := openai.DefaultConfig(token)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &openAIBackend{client: openai.NewClientWithConfig(cfg), model: model}
}

func (b *openAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxNewTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
