package jobs

import "errors"

var (
	// ErrNotFound indicates the source object does not exist.
	ErrNotFound = errors.New("source object not found")
	// ErrDecode indicates the source object is not valid line-delimited records.
	ErrDecode = errors.New("decode failed")
	// ErrClassification indicates the sentiment service could not classify a batch.
	ErrClassification = errors.New("classification failed")
	// ErrStorage indicates the object store failed a read, write, or delete.
	ErrStorage = errors.New("storage failed")
	// ErrObjectTooLarge indicates the source object exceeds the configured size limit.
	ErrObjectTooLarge = errors.New("object too large")
)
