package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/JaimeStill/osenchi/internal/records"
	"github.com/JaimeStill/osenchi/pkg/retry"
)

type geminiDetector struct {
	client *genai.Client
	model  string
}

func newGemini(ctx context.Context, cfg *Config) (Detector, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &geminiDetector{client: client, model: cfg.Model}, nil
}

var geminiSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"results": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"index": {Type: genai.TypeInteger},
					"sentiment": {
						Type: genai.TypeString,
						Enum: []string{
							string(records.SentimentPositive),
							string(records.SentimentNegative),
							string(records.SentimentNeutral),
							string(records.SentimentMixed),
						},
					},
					"positive": {Type: genai.TypeNumber},
					"negative": {Type: genai.TypeNumber},
					"neutral":  {Type: genai.TypeNumber},
					"mixed":    {Type: genai.TypeNumber},
				},
				Required: []string{"index", "sentiment", "positive", "negative", "neutral", "mixed"},
			},
		},
	},
	Required: []string{"results"},
}

func (d *geminiDetector) DetectBatch(ctx context.Context, language string, texts []string) ([]Detection, error) {
	prompt, err := userPrompt(language, texts)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Models.GenerateContent(ctx, d.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(systemPrompt)},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiSchema,
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, geminiError(err)
	}

	return parseLLMResponse(resp.Text())
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			return retry.Transient(fmt.Errorf("gemini generate: %w", err))
		}
	}
	return fmt.Errorf("gemini generate: %w", err)
}
