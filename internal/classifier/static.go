package classifier

import (
	"context"

	"github.com/JaimeStill/osenchi/internal/records"
)

// Static answers every text with the same label and a full score on that label.
// Used for local runs without credentials.
type Static struct {
	Sentiment records.Sentiment
}

func (s Static) DetectBatch(ctx context.Context, language string, texts []string) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pos, neg, neu, mix float64
	switch s.Sentiment {
	case records.SentimentPositive:
		pos = 1
	case records.SentimentNegative:
		neg = 1
	case records.SentimentMixed:
		mix = 1
	default:
		neu = 1
	}

	dets := make([]Detection, len(texts))
	for i := range texts {
		dets[i] = Detection{
			Index:     i,
			Sentiment: s.Sentiment,
			Score: PartialScore{
				Positive: &pos,
				Negative: &neg,
				Neutral:  &neu,
				Mixed:    &mix,
			},
		}
	}
	return dets, nil
}

// NewDetector builds the detector named by cfg.Detector.
func NewDetector(ctx context.Context, cfg *Config) (Detector, error) {
	switch cfg.Detector {
	case DetectorComprehend:
		return newComprehend(cfg)
	case DetectorGemini:
		return newGemini(ctx, cfg)
	case DetectorOpenAI:
		return newOpenAI(cfg), nil
	case DetectorStatic:
		return Static{Sentiment: records.Sentiment(cfg.StaticSentiment)}, nil
	default:
		return nil, ErrUnknownDetector
	}
}
