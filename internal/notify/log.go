package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

// Log writes notifications to the process log. Used for local runs.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log publisher.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("system", "notify", "backend", BackendLog)}
}

func (l *Log) Start(lc *lifecycle.Coordinator) error {
	l.logger.Info("starting notification system")
	return nil
}

func (l *Log) Publish(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	l.logger.InfoContext(ctx, "notification", "message_id", id, "subject", msg.Subject, "body", msg.Body)
	return id, nil
}
