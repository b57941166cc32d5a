// Package classifier submits record content to an external sentiment service in
// fixed-size batches and writes the per-record results back onto the records.
package classifier

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/osenchi/internal/records"
)

// BatchSize is the maximum number of texts the service accepts in one call.
const BatchSize = 25

// Detector is the external sentiment service. DetectBatch receives at most
// BatchSize texts sharing one language and returns results indexed by position
// within texts.
type Detector interface {
	DetectBatch(ctx context.Context, language string, texts []string) ([]Detection, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, language string, texts []string) ([]Detection, error)

func (f DetectorFunc) DetectBatch(ctx context.Context, language string, texts []string) ([]Detection, error) {
	return f(ctx, language, texts)
}

// Detection is the service result for the text at Index within one batch.
type Detection struct {
	Index     int
	Sentiment records.Sentiment
	Score     PartialScore
}

// PartialScore carries sub-scores as reported; nil means the service omitted it.
type PartialScore struct {
	Positive *float64
	Negative *float64
	Neutral  *float64
	Mixed    *float64
}

// ScorePolicy controls how missing sub-scores are treated.
type ScorePolicy string

const (
	// ScoreLenient defaults missing sub-scores to 0.
	ScoreLenient ScorePolicy = "lenient"
	// ScoreStrict rejects a batch whose results omit any sub-score. Scores
	// outside [0,1] are rejected under either policy.
	ScoreStrict ScorePolicy = "strict"
)

// Options tunes a Client.
type Options struct {
	// Concurrency caps in-flight batch calls per Classify. Defaults to 4.
	Concurrency int
	// RateLimitRPS is a limit on calls per second shared by every Classify on
	// this Client. Set to <=0 to disable.
	RateLimitRPS float64
	ScorePolicy  ScorePolicy
	// BatchSize overrides BatchSize with a smaller value; larger values are clamped.
	BatchSize int
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.ScorePolicy == "" {
		o.ScorePolicy = ScoreLenient
	}
	if o.BatchSize <= 0 || o.BatchSize > BatchSize {
		o.BatchSize = BatchSize
	}
	return o
}

// Client batches records for a Detector.
type Client struct {
	detector Detector
	limiter  *rate.Limiter
	opts     Options
}

// New creates a Client over detector.
func New(detector Detector, opts Options) *Client {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	return &Client{
		detector: detector,
		limiter:  limiter,
		opts:     opts,
	}
}

// Batch is a contiguous slice of a group starting at Offset.
type Batch struct {
	Offset  int
	Records []*records.TextRecord
}

// Batches splits recs into consecutive batches of at most size records.
func Batches(recs []*records.TextRecord, size int) []Batch {
	if size <= 0 {
		size = BatchSize
	}

	out := make([]Batch, 0, (len(recs)+size-1)/size)
	for off := 0; off < len(recs); off += size {
		end := min(off+size, len(recs))
		out = append(out, Batch{Offset: off, Records: recs[off:end]})
	}
	return out
}

// Classify fills in Sentiment and Score on every record of one language group.
// Batches run concurrently; each batch only touches its own records. The first
// failing batch cancels the rest and is returned as a *ClassificationError.
func (c *Client) Classify(ctx context.Context, language string, recs []*records.TextRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for _, b := range Batches(recs, c.opts.BatchSize) {
		g.Go(func() error {
			if err := c.classifyBatch(gctx, language, b); err != nil {
				return &ClassificationError{
					Language: language,
					Offset:   b.Offset,
					Err:      err,
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func (c *Client) classifyBatch(ctx context.Context, language string, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	texts := make([]string, len(b.Records))
	for i, r := range b.Records {
		texts[i] = r.Content
	}

	dets, err := c.detector.DetectBatch(ctx, language, texts)
	if err != nil {
		return err
	}

	results, err := c.collect(dets, len(b.Records))
	if err != nil {
		return err
	}

	for i, r := range b.Records {
		r.Sentiment = results[i].sentiment
		r.Score = &results[i].score
	}
	return nil
}

type result struct {
	sentiment records.Sentiment
	score     records.Score
}

// collect validates a whole batch response before any record is touched.
func (c *Client) collect(dets []Detection, n int) ([]result, error) {
	results := make([]result, n)
	answered := make([]bool, n)

	for _, d := range dets {
		if d.Index < 0 || d.Index >= n {
			return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrMalformedResponse, d.Index, n)
		}
		if answered[d.Index] {
			return nil, fmt.Errorf("%w: duplicate result for index %d", ErrMalformedResponse, d.Index)
		}
		if !d.Sentiment.Valid() {
			return nil, fmt.Errorf("%w: index %d: unknown sentiment %q", ErrMalformedResponse, d.Index, d.Sentiment)
		}

		score, err := c.score(d.Score)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", d.Index, err)
		}

		results[d.Index] = result{sentiment: d.Sentiment, score: score}
		answered[d.Index] = true
	}

	for i, ok := range answered {
		if !ok {
			return nil, fmt.Errorf("%w: no result for index %d", ErrMalformedResponse, i)
		}
	}

	return results, nil
}

func (c *Client) score(p PartialScore) (records.Score, error) {
	if c.opts.ScorePolicy == ScoreStrict {
		if p.Positive == nil || p.Negative == nil || p.Neutral == nil || p.Mixed == nil {
			return records.Score{}, fmt.Errorf("%w: missing sub-score", ErrMalformedResponse)
		}
	}

	for _, v := range []*float64{p.Positive, p.Negative, p.Neutral, p.Mixed} {
		if v != nil && (math.IsNaN(*v) || *v < 0 || *v > 1) {
			return records.Score{}, fmt.Errorf("%w: sub-score %v out of range [0,1]", ErrMalformedResponse, *v)
		}
	}

	return records.Score{
		Positive: valueOrZero(p.Positive),
		Negative: valueOrZero(p.Negative),
		Neutral:  valueOrZero(p.Neutral),
		Mixed:    valueOrZero(p.Mixed),
	}, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
