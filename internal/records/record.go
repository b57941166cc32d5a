// Package records defines the text records carried by a source object and the
// JSON Lines codec and language partitioner used by the sentiment job.
package records

// Sentiment is the overall label assigned to a record by classification.
type Sentiment string

// Sentiment labels returned by the classification service.
const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentMixed    Sentiment = "MIXED"
)

// Valid reports whether s is one of the four known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return true
	}
	return false
}

// Score holds per-label confidence values in [0, 1].
type Score struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
}

// Sum returns the total of the four sub-scores.
func (s Score) Sum() float64 {
	return s.Positive + s.Negative + s.Neutral + s.Mixed
}

// TextRecord is one line of a source object. Sentiment and Score are empty
// until classification fills them in; every other field is fixed at parse time.
type TextRecord struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Language  string    `json:"language"`
	Content   string    `json:"content"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
	Score     *Score    `json:"score,omitempty"`
}

// Classified reports whether classification has populated the record.
func (r *TextRecord) Classified() bool {
	return r.Sentiment != "" && r.Score != nil
}
