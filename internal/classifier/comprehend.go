package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/comprehend"

	"github.com/JaimeStill/osenchi/internal/records"
	"github.com/JaimeStill/osenchi/pkg/retry"
)

type comprehendDetector struct {
	client *comprehend.Comprehend
}

func newComprehend(cfg *Config) (Detector, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &comprehendDetector{client: comprehend.New(sess)}, nil
}

func (d *comprehendDetector) DetectBatch(ctx context.Context, language string, texts []string) ([]Detection, error) {
	out, err := d.client.BatchDetectSentimentWithContext(ctx, &comprehend.BatchDetectSentimentInput{
		LanguageCode: aws.String(language),
		TextList:     aws.StringSlice(texts),
	})
	if err != nil {
		return nil, comprehendError(err)
	}

	if len(out.ErrorList) > 0 {
		item := out.ErrorList[0]
		return nil, fmt.Errorf(
			"%w: index %d: %s: %s",
			ErrItemFailed,
			aws.Int64Value(item.Index),
			aws.StringValue(item.ErrorCode),
			aws.StringValue(item.ErrorMessage),
		)
	}

	dets := make([]Detection, 0, len(out.ResultList))
	for _, r := range out.ResultList {
		if r.Index == nil {
			continue
		}

		det := Detection{
			Index:     int(*r.Index),
			Sentiment: records.Sentiment(aws.StringValue(r.Sentiment)),
		}
		if s := r.SentimentScore; s != nil {
			det.Score = PartialScore{
				Positive: s.Positive,
				Negative: s.Negative,
				Neutral:  s.Neutral,
				Mixed:    s.Mixed,
			}
		}
		dets = append(dets, det)
	}

	return dets, nil
}

// comprehendError marks throttling and server-side failures as transient.
func comprehendError(err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case comprehend.ErrCodeTooManyRequestsException, "ThrottlingException":
			return retry.Transient(fmt.Errorf("detect sentiment: %w", err))
		}
	}

	var rerr awserr.RequestFailure
	if errors.As(err, &rerr) {
		if rerr.StatusCode() == http.StatusTooManyRequests || rerr.StatusCode() >= http.StatusInternalServerError {
			return retry.Transient(fmt.Errorf("detect sentiment: %w", err))
		}
	}

	return fmt.Errorf("detect sentiment: %w", err)
}
