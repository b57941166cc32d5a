package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

// azure maps buckets onto blob containers within one storage account.
type azure struct {
	client     *azblob.Client
	containers []string
	logger     *slog.Logger
}

func newAzure(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:     client,
		containers: cfg.Buckets,
		logger:     logger.With("system", "storage", "provider", ProviderAzure),
	}, nil
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system")

	lc.OnStartup("storage", func() error {
		var errs []error
		for _, name := range a.containers {
			_, err := a.client.
				ServiceClient().
				NewContainerClient(name).
				GetProperties(lc.Context(), nil)
			if err != nil {
				a.logger.Error("storage container probe failed", "container", name, "error", err)
				errs = append(errs, fmt.Errorf("probe container %s: %w", name, err))
				continue
			}
			a.logger.Info("storage container ready", "container", name)
		}
		return errors.Join(errs...)
	})

	return nil
}

func (a *azure) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := validateLocation(bucket, key); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download blob %s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s: %w", bucket, key, err)
	}

	return data, nil
}

func (a *azure) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := validateLocation(bucket, key); err != nil {
		return err
	}

	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	if _, err := a.client.UploadBuffer(ctx, bucket, key, data, opts); err != nil {
		return fmt.Errorf("upload blob %s/%s: %w", bucket, key, err)
	}

	return nil
}

func (a *azure) Delete(ctx context.Context, bucket, key string) (int, error) {
	if err := validateLocation(bucket, key); err != nil {
		return 0, err
	}

	_, err := a.client.DeleteBlob(ctx, bucket, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return http.StatusNoContent, nil
		}
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			return 0, fmt.Errorf("delete blob %s/%s: %w: %w", bucket, key, ErrBucketNotFound, err)
		}
		return 0, fmt.Errorf("delete blob %s/%s: %w", bucket, key, err)
	}

	return http.StatusAccepted, nil
}

func (a *azure) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validateLocation(bucket, key); err != nil {
		return false, err
	}

	blobClient := a.client.
		ServiceClient().
		NewContainerClient(bucket).
		NewBlobClient(key)

	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check blob existence %s/%s: %w", bucket, key, err)
	}

	return true, nil
}
