package classifier

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse indicates a service response that cannot be mapped onto the batch.
	ErrMalformedResponse = errors.New("malformed classification response")
	// ErrItemFailed indicates the service rejected an individual text in a batch.
	ErrItemFailed = errors.New("classification item failed")
	// ErrUnknownDetector indicates the configured detector is not supported.
	ErrUnknownDetector = errors.New("unknown detector")
)

// ClassificationError reports the batch that failed: its language and the offset
// of its first record within the language group.
type ClassificationError struct {
	Language string
	Offset   int
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s batch at offset %d: %v", e.Language, e.Offset, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}
