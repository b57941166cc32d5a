package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/JaimeStill/osenchi/pkg/retry"
)

type openAIDetector struct {
	client *openai.Client
	model  string
}

func newOpenAI(cfg *Config) Detector {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &openAIDetector{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
}

func (d *openAIDetector) DetectBatch(ctx context.Context, language string, texts []string) ([]Detection, error) {
	prompt, err := userPrompt(language, texts)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, openAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	return parseLLMResponse(resp.Choices[0].Message.Content)
}

func openAIError(err error) error {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return retry.Transient(fmt.Errorf("openai chat completion: %w", err))
	}
	return fmt.Errorf("openai chat completion: %w", err)
}
