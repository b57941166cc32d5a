package notify_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/osenchi/internal/notify"
)

func TestValidateSubscribers(t *testing.T) {
	tests := []struct {
		name      string
		addrs     []string
		wantIndex int
		wantErr   bool
	}{
		{"none", nil, 0, false},
		{"valid", []string{"test-email@example.com"}, 0, false},
		{"several valid", []string{"a@example.com", "ops.team+osenchi@mail.example.co.jp"}, 0, false},
		{"leading space", []string{" test-email@example.com"}, 0, true},
		{"trailing space", []string{"test-email@example.com "}, 0, true},
		{"second invalid", []string{"a@example.com", "not-an-email"}, 1, true},
		{"empty", []string{""}, 0, true},
		{"underscore domain", []string{"a@exa_mple.com"}, 0, true},
		{"bare host", []string{"root@localhost"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := notify.ValidateSubscribers(tt.addrs)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("ValidateSubscribers() error = %v", err)
				}
				return
			}

			var ve *notify.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if ve.Index != tt.wantIndex {
				t.Errorf("Index = %d, want %d", ve.Index, tt.wantIndex)
			}
			if ve.Address != tt.addrs[tt.wantIndex] {
				t.Errorf("Address = %q, want %q", ve.Address, tt.addrs[tt.wantIndex])
			}
		})
	}
}

func TestConfigFinalizeRejectsInvalidSubscriber(t *testing.T) {
	cfg := &notify.Config{
		Backend:     notify.BackendLog,
		Subscribers: []string{" test-email@example.com"},
	}

	err := cfg.Finalize(nil)

	var ve *notify.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Finalize() error = %v, want *ValidationError", err)
	}
}

func TestConfigSubscribersFromEnv(t *testing.T) {
	t.Setenv("TEST_NOTIFY_SUBSCRIBERS", "a@example.com,b@example.com")

	cfg := &notify.Config{Backend: notify.BackendLog}
	if err := cfg.Finalize(&notify.Env{Subscribers: "TEST_NOTIFY_SUBSCRIBERS"}); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if len(cfg.Subscribers) != 2 || cfg.Subscribers[1] != "b@example.com" {
		t.Errorf("Subscribers = %v", cfg.Subscribers)
	}
}

func TestConfigSubscribersFromEnvKeepWhitespace(t *testing.T) {
	t.Setenv("TEST_NOTIFY_SUBSCRIBERS", "a@example.com, b@example.com")

	cfg := &notify.Config{Backend: notify.BackendLog}
	err := cfg.Finalize(&notify.Env{Subscribers: "TEST_NOTIFY_SUBSCRIBERS"})

	var ve *notify.ValidationError
	if !errors.As(err, &ve) || ve.Index != 1 {
		t.Fatalf("Finalize() error = %v, want *ValidationError at index 1", err)
	}
}

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     notify.Config
		wantErr bool
	}{
		{"sns needs topic", notify.Config{}, true},
		{"sns with topic", notify.Config{Topic: "osenchi-topic"}, false},
		{"resend complete", notify.Config{
			Backend: notify.BackendResend, APIKey: "re_x", From: "osenchi@example.com",
			Subscribers: []string{"ops@example.com"},
		}, false},
		{"resend without subscribers", notify.Config{
			Backend: notify.BackendResend, APIKey: "re_x", From: "osenchi@example.com",
		}, true},
		{"log", notify.Config{Backend: notify.BackendLog}, false},
		{"unknown", notify.Config{Backend: "pager"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := cfg.Finalize(nil); (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubjects(t *testing.T) {
	cfg := &notify.Config{Backend: notify.BackendLog}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if got := cfg.SuccessSubject(); got != "Osenchi Success" {
		t.Errorf("SuccessSubject() = %q", got)
	}
	if got := cfg.ErrorSubject(); got != "Osenchi Error" {
		t.Errorf("ErrorSubject() = %q", got)
	}
}

func TestLogPublish(t *testing.T) {
	var buf bytes.Buffer
	pub := notify.NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	id, err := pub.Publish(context.Background(), notify.Message{Subject: "Osenchi Success", Body: `{"id":"1"}`})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id == "" {
		t.Error("Publish() returned empty message id")
	}
	if !strings.Contains(buf.String(), "Osenchi Success") {
		t.Errorf("log output missing subject: %s", buf.String())
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := notify.New(&notify.Config{Backend: "pager"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if !errors.Is(err, notify.ErrUnknownBackend) {
		t.Errorf("New() error = %v, want ErrUnknownBackend", err)
	}
}
