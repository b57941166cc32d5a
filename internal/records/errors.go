package records

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLine indicates a line that is not exactly one JSON object of the record shape.
	ErrMalformedLine = errors.New("malformed record line")
	// ErrMissingLanguage indicates a record without a language tag.
	ErrMissingLanguage = errors.New("record language must not be empty")
)

// DecodeError identifies the line that failed to decode.
// Line is 1-based and counts every line of the input, including skipped blank lines.
type DecodeError struct {
	Line    int
	Content string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode line %d %q: %v", e.Line, e.Content, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
