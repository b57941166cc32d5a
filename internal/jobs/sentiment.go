// Package jobs implements the pipeline's units of work: classifying the records
// of one source object into the destination bucket, and deleting the source.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/osenchi/internal/classifier"
	"github.com/JaimeStill/osenchi/internal/records"
	"github.com/JaimeStill/osenchi/pkg/retry"
	"github.com/JaimeStill/osenchi/pkg/storage"
)

// SentimentRequest identifies the object to classify.
type SentimentRequest struct {
	ID           string `json:"id"`
	SourceBucket string `json:"sourceBucket"`
	ObjectKey    string `json:"objectKey"`
}

// SentimentResult identifies where the classified object was written.
type SentimentResult struct {
	ID         string `json:"id"`
	SrcBucket  string `json:"srcBucket"`
	ObjectKey  string `json:"objectKey"`
	DestBucket string `json:"destBucket"`
}

// Classifier annotates the records of one language group in place.
type Classifier interface {
	Classify(ctx context.Context, language string, recs []*records.TextRecord) error
}

// Sentiment reads a source object, classifies every record, and writes the
// annotated records to the destination bucket under the same key.
type Sentiment struct {
	store      storage.System
	classifier Classifier
	destBucket string
	maxBytes   int64
	groups     int
	policy     retry.Policy
	logger     *slog.Logger
}

// NewSentiment creates the sentiment job. cfg must be finalized.
func NewSentiment(store storage.System, cls Classifier, cfg *Config, logger *slog.Logger) *Sentiment {
	s := &Sentiment{
		store:      store,
		classifier: cls,
		destBucket: cfg.DestBucket,
		maxBytes:   cfg.MaxObjectBytes(),
		groups:     cfg.GroupConcurrency,
		policy:     cfg.RetryPolicy(),
		logger:     logger.With("system", "sentiment"),
	}

	s.policy.Retryable = retryableClassification
	s.policy.OnRetry = func(attempt int, err error, sleep time.Duration) {
		s.logger.Warn("retrying classification", "attempt", attempt, "sleep", sleep, "error", err)
	}
	return s
}

// Run classifies the object named by req. Re-running with the same input and a
// deterministic classifier overwrites the destination with identical bytes.
func (s *Sentiment) Run(ctx context.Context, req SentimentRequest) (*SentimentResult, error) {
	start := time.Now()
	logger := s.logger.With("id", req.ID, "bucket", req.SourceBucket, "key", req.ObjectKey)

	data, err := s.store.Get(ctx, req.SourceBucket, req.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, req.SourceBucket, req.ObjectKey)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d: %w", ErrDecode, len(data), s.maxBytes, ErrObjectTooLarge)
	}

	recs, err := records.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	groups := records.Partition(recs)
	logger.InfoContext(ctx, "classifying records", "records", len(recs), "languages", records.Languages(groups))

	if err := s.classify(ctx, groups); err != nil {
		return nil, err
	}

	out, err := records.Serialize(recs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if err := s.store.Put(ctx, s.destBucket, req.ObjectKey, out, records.ContentType); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	logger.InfoContext(ctx, "records classified",
		"records", len(recs),
		"dest_bucket", s.destBucket,
		"duration", time.Since(start),
	)

	return &SentimentResult{
		ID:         req.ID,
		SrcBucket:  req.SourceBucket,
		ObjectKey:  req.ObjectKey,
		DestBucket: s.destBucket,
	}, nil
}

func (s *Sentiment) classify(ctx context.Context, groups []records.Group) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.groups)

	for _, group := range groups {
		g.Go(func() error {
			err := retry.Do(gctx, s.policy, func(ctx context.Context) error {
				return s.classifier.Classify(ctx, group.Language, group.Records)
			})
			if err != nil {
				return fmt.Errorf("%w: %w", ErrClassification, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func retryableClassification(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ce *classifier.ClassificationError
	return errors.As(err, &ce) || retry.IsTransient(err)
}
