package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

type resendPublisher struct {
	client *resend.Client
	from   string
	to     []string
	logger *slog.Logger
}

func newResend(cfg *Config, logger *slog.Logger) System {
	return &resendPublisher{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.From,
		to:     cfg.Subscribers,
		logger: logger.With("system", "notify", "backend", BackendResend),
	}
}

func (p *resendPublisher) Start(lc *lifecycle.Coordinator) error {
	p.logger.Info("starting notification system", "subscribers", len(p.to))
	return nil
}

func (p *resendPublisher) Publish(ctx context.Context, msg Message) (string, error) {
	resp, err := p.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    p.from,
		To:      p.to,
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return "", fmt.Errorf("%w: resend: %w", ErrPublishFailed, err)
	}

	p.logger.InfoContext(ctx, "notification published", "subject", msg.Subject, "message_id", resp.Id)
	return resp.Id, nil
}
