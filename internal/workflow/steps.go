package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/osenchi/internal/jobs"
	"github.com/JaimeStill/osenchi/internal/notify"
)

// Step executes a task state: it receives the current payload and returns the next.
type Step func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// SentimentJob classifies one source object.
type SentimentJob interface {
	Run(ctx context.Context, req jobs.SentimentRequest) (*jobs.SentimentResult, error)
}

// DeletionJob removes one source object.
type DeletionJob interface {
	Run(ctx context.Context, bucket, key string) (int, error)
}

// Runtime bundles the dependencies that pipeline steps require.
// It is constructed by higher-level composition code from the application's systems.
type Runtime struct {
	Sentiment      SentimentJob
	Deletion       DeletionJob
	Publisher      notify.Publisher
	SuccessSubject string
	ErrorSubject   string
	Logger         *slog.Logger
}

// Steps returns the task steps of the pipeline definition keyed by state name.
func Steps(rt *Runtime) map[string]Step {
	return map[string]Step{
		StateSentiment:     SentimentStep(rt),
		StateDeletion:      DeletionStep(rt),
		StateSuccessNotify: NotifyStep(rt, rt.SuccessSubject),
		StateErrorNotify:   NotifyStep(rt, rt.ErrorSubject),
	}
}

// SentimentStep turns the trigger payload into a sentiment result.
func SentimentStep(rt *Runtime) Step {
	return func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		trigger, err := ParseTrigger(input)
		if err != nil {
			return nil, err
		}
		if err := trigger.Validate(); err != nil {
			return nil, err
		}

		res, err := rt.Sentiment.Run(ctx, trigger.Request())
		if err != nil {
			return nil, err
		}

		return json.Marshal(res)
	}
}

// DeletionStep deletes the source object named by a sentiment result and
// carries the store's status code forward.
func DeletionStep(rt *Runtime) Step {
	return func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		var in DeletionInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}

		status, err := rt.Deletion.Run(ctx, in.SrcBucket, in.ObjectKey)
		if err != nil {
			return nil, err
		}

		return json.Marshal(DeletionOutput{
			ID:         in.ID,
			SrcBucket:  in.SrcBucket,
			ObjectKey:  in.ObjectKey,
			StatusCode: status,
		})
	}
}

// NotifyStep publishes the whole payload under subject and passes it through.
func NotifyStep(rt *Runtime, subject string) Step {
	return func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		var body bytes.Buffer
		if err := json.Indent(&body, input, "", "  "); err != nil {
			return nil, fmt.Errorf("format notification body: %w", err)
		}

		id, err := rt.Publisher.Publish(ctx, notify.Message{
			Subject: subject,
			Body:    body.String(),
		})
		if err != nil {
			return nil, err
		}

		rt.Logger.InfoContext(ctx, "notification sent", "subject", subject, "message_id", id)
		return input, nil
	}
}
