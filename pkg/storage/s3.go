package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

type s3Store struct {
	client  *s3.S3
	buckets []string
	logger  *slog.Logger
}

func newS3(cfg *Config, logger *slog.Logger) (System, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return &s3Store{
		client:  s3.New(sess),
		buckets: cfg.Buckets,
		logger:  logger.With("system", "storage", "provider", ProviderS3),
	}, nil
}

func (s *s3Store) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting storage system")

	lc.OnStartup("storage", func() error {
		var errs []error
		for _, bucket := range s.buckets {
			_, err := s.client.HeadBucketWithContext(lc.Context(), &s3.HeadBucketInput{
				Bucket: aws.String(bucket),
			})
			if err != nil {
				s.logger.Error("storage bucket probe failed", "bucket", bucket, "error", err)
				errs = append(errs, fmt.Errorf("probe bucket %s: %w", bucket, err))
				continue
			}
			s.logger.Info("storage bucket ready", "bucket", bucket)
		}
		return errors.Join(errs...)
	})

	return nil
}

func (s *s3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := validateLocation(bucket, key); err != nil {
		return nil, err
	}

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}

	return data, nil
}

func (s *s3Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := validateLocation(bucket, key); err != nil {
		return err
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}

	return nil
}

func (s *s3Store) Delete(ctx context.Context, bucket, key string) (int, error) {
	if err := validateLocation(bucket, key); err != nil {
		return 0, err
	}

	req, _ := s.client.DeleteObjectRequest(&s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	if err := req.Send(); err != nil {
		if isS3KeyMissing(err) {
			return http.StatusNoContent, nil
		}
		if isS3BucketMissing(err) {
			return 0, fmt.Errorf("delete object %s/%s: %w: %w", bucket, key, ErrBucketNotFound, err)
		}
		return 0, fmt.Errorf("delete object %s/%s: %w", bucket, key, err)
	}

	if req.HTTPResponse == nil {
		return http.StatusNoContent, nil
	}
	return req.HTTPResponse.StatusCode, nil
}

func (s *s3Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validateLocation(bucket, key); err != nil {
		return false, err
	}

	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3KeyMissing(err) {
			return false, nil
		}
		if isS3BucketMissing(err) {
			return false, fmt.Errorf("check object existence %s/%s: %w: %w", bucket, key, ErrBucketNotFound, err)
		}
		return false, fmt.Errorf("check object existence %s/%s: %w", bucket, key, err)
	}

	return true, nil
}

// isS3NotFound reports a missing object or bucket. Reads treat both as absent.
func isS3NotFound(err error) bool {
	return isS3KeyMissing(err) || isS3BucketMissing(err)
}

// isS3KeyMissing reports a missing object. HeadObject carries no body, so its
// 404 surfaces as the bare NotFound code.
func isS3KeyMissing(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return false
}

func isS3BucketMissing(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchBucket
}
