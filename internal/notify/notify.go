// Package notify publishes workflow outcome messages to operators through SNS,
// Resend email, or the process log.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

// Message is a single operator notification.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Publisher delivers a message and returns the backend's message identifier.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// System is a Publisher with lifecycle coordination.
type System interface {
	Publisher
	// Start registers any startup checks the backend needs.
	Start(lc *lifecycle.Coordinator) error
}

// New creates the publisher for the configured backend. cfg must be finalized.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Backend {
	case BackendSNS:
		return newSNS(cfg, logger)
	case BackendResend:
		return newResend(cfg, logger), nil
	case BackendLog:
		return NewLog(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
