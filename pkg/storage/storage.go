// Package storage provides bucket/key object storage with S3, Azure Blob Storage,
// and in-memory implementations.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

// System manages object storage operations and lifecycle coordination.
// Buckets map to S3 buckets or Azure containers depending on the provider.
type System interface {
	// Start registers a startup hook that probes the configured buckets.
	Start(lc *lifecycle.Coordinator) error
	// Get returns the full contents of the object at bucket/key.
	// Returns ErrNotFound if the bucket or object does not exist.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Put writes data to bucket/key with the given content type, replacing any existing object.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	// Delete removes the object at bucket/key and returns the status code reported by the store.
	// Deleting an absent object is not an error.
	Delete(ctx context.Context, bucket, key string) (int, error)
	// Exists reports whether an object exists at bucket/key.
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

// New creates a storage system for the configured provider.
// Clients are constructed eagerly but no network call is made until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Provider {
	case ProviderS3:
		return newS3(cfg, logger)
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderMemory:
		return NewMemory(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func validateLocation(bucket, key string) error {
	if bucket == "" {
		return ErrEmptyBucket
	}
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
