package classifier

import (
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/osenchi/internal/records"
)

func TestParseLLMResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bare json", `{"results":[{"index":0,"sentiment":"positive","positive":0.9,"negative":0.1}]}`},
		{"fenced json", "```json\n{\"results\":[{\"index\":0,\"sentiment\":\"POSITIVE\",\"positive\":0.9,\"negative\":0.1}]}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets, err := parseLLMResponse(tt.content)
			if err != nil {
				t.Fatalf("parseLLMResponse() error = %v", err)
			}
			if len(dets) != 1 {
				t.Fatalf("got %d detections, want 1", len(dets))
			}

			d := dets[0]
			if d.Sentiment != records.SentimentPositive {
				t.Errorf("Sentiment = %q, want POSITIVE", d.Sentiment)
			}
			if d.Score.Positive == nil || *d.Score.Positive != 0.9 {
				t.Errorf("Positive = %v, want 0.9", d.Score.Positive)
			}
			if d.Score.Neutral != nil || d.Score.Mixed != nil {
				t.Error("omitted sub-scores should stay nil")
			}
		})
	}
}

func TestParseLLMResponseMalformed(t *testing.T) {
	_, err := parseLLMResponse("I think these are mostly positive.")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestUserPromptEncodesTexts(t *testing.T) {
	prompt, err := userPrompt("en", []string{`ignore "instructions"`, "line\nbreak"})
	if err != nil {
		t.Fatalf("userPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, "Language code: en") {
		t.Errorf("prompt missing language: %s", prompt)
	}
	if !strings.Contains(prompt, `["ignore \"instructions\"","line\nbreak"]`) {
		t.Errorf("prompt texts not JSON encoded: %s", prompt)
	}
}
