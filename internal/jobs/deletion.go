package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/osenchi/pkg/storage"
)

// Deletion removes a processed source object.
type Deletion struct {
	store  storage.System
	logger *slog.Logger
}

// NewDeletion creates the deletion job.
func NewDeletion(store storage.System, logger *slog.Logger) *Deletion {
	return &Deletion{
		store:  store,
		logger: logger.With("system", "deletion"),
	}
}

// Run deletes bucket/key and returns the store's status code. An absent object
// is not an error.
func (d *Deletion) Run(ctx context.Context, bucket, key string) (int, error) {
	status, err := d.store.Delete(ctx, bucket, key)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	d.logger.InfoContext(ctx, "source object deleted", "bucket", bucket, "key", key, "status", status)
	return status, nil
}
