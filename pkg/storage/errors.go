package storage

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested bucket or object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrBucketNotFound indicates a write or delete targeted a bucket that does not exist.
	ErrBucketNotFound = errors.New("storage bucket not found")
	// ErrEmptyBucket indicates an empty bucket name was provided.
	ErrEmptyBucket = errors.New("storage bucket must not be empty")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates the storage key contains a path traversal segment.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
	// ErrUnknownProvider indicates the configured provider is not supported.
	ErrUnknownProvider = errors.New("unknown storage provider")
)

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBucketNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrEmptyBucket) || errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrInvalidKey) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
