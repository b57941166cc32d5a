package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JaimeStill/osenchi/internal/records"
	"github.com/JaimeStill/osenchi/pkg/formatting"
)

const systemPrompt = `You are a sentiment classifier. For every input text, decide whether its
sentiment is POSITIVE, NEGATIVE, NEUTRAL, or MIXED and estimate a confidence
between 0 and 1 for each of the four labels.

Respond with a single JSON object and nothing else:
{"results":[{"index":0,"sentiment":"POSITIVE","positive":0.9,"negative":0.02,"neutral":0.05,"mixed":0.03}]}

Return exactly one result per input text. "index" is the zero-based position of
the text in the input array.`

type llmResponse struct {
	Results []llmResult `json:"results"`
}

type llmResult struct {
	Index     int      `json:"index"`
	Sentiment string   `json:"sentiment"`
	Positive  *float64 `json:"positive"`
	Negative  *float64 `json:"negative"`
	Neutral   *float64 `json:"neutral"`
	Mixed     *float64 `json:"mixed"`
}

// userPrompt encodes texts as a JSON array so record content cannot alter the
// prompt structure.
func userPrompt(language string, texts []string) (string, error) {
	encoded, err := json.Marshal(texts)
	if err != nil {
		return "", fmt.Errorf("encode texts: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Language code: %s\n", language)
	fmt.Fprintf(&b, "Texts (%d):\n", len(texts))
	b.Write(encoded)
	return b.String(), nil
}

func parseLLMResponse(content string) ([]Detection, error) {
	resp, err := formatting.Parse[llmResponse](content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	dets := make([]Detection, len(resp.Results))
	for i, r := range resp.Results {
		dets[i] = Detection{
			Index:     r.Index,
			Sentiment: records.Sentiment(strings.ToUpper(strings.TrimSpace(r.Sentiment))),
			Score: PartialScore{
				Positive: r.Positive,
				Negative: r.Negative,
				Neutral:  r.Neutral,
				Mixed:    r.Mixed,
			},
		}
	}
	return dets, nil
}
