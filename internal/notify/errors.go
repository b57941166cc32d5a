package notify

import (
	"errors"
	"fmt"
)

var (
	// ErrPublishFailed indicates the backend rejected or could not deliver a message.
	ErrPublishFailed = errors.New("publish failed")
	// ErrTopicNotFound indicates the configured SNS topic name could not be resolved.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrUnknownBackend indicates the configured backend is not supported.
	ErrUnknownBackend = errors.New("unknown notification backend")
)

// ValidationError reports a subscriber address that is not a valid email address.
type ValidationError struct {
	Address string
	Index   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("subscriber %d: email address %q is invalid", e.Index, e.Address)
}
