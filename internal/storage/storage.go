// Package storage mirrors checkpoints and report PDFs to S3 compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/localnerve/lxnotes/internal/config"
	"go.uber.org/zap"
)

// ErrDisabled is returned by the no-op store
var ErrDisabled = errors.New("object storage is not configured")

// Store is the object storage used for checkpoint mirrors and emailed PDFs
type Store interface {
	Enabled() bool
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// New returns an S3 store when a bucket is configured, otherwise a no-op store
func New(cfg *config.Config, log *zap.Logger) (Store, error) {
	if !cfg.StorageEnabled() {
		return Nop{}, nil
	}
	return NewS3Store(cfg, log)
}

// S3Store implements Store on AWS S3, MinIO and other S3 compatible services
type S3Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	linkExpiry    time.Duration
	logger        *zap.Logger
}

// NewS3Store creates an S3 store from configuration
func NewS3Store(cfg *config.Config, log *zap.Logger) (*S3Store, error) {
	if cfg.StorageBucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.StorageAccessKey == "" || cfg.StorageSecretKey == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := cfg.StorageRegion
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.StorageEndpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.StorageUsePathStyle
		if endpoint != "" {
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	if log == nil {
		log = zap.NewNop()
	}
	expiry := cfg.StorageLinkExpiry
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}

	return &S3Store{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.StorageBucket,
		linkExpiry:    expiry,
		logger:        log.Named("storage"),
	}, nil
}

// Enabled implements Store
func (s *S3Store) Enabled() bool { return true }

// Put uploads an object
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	s.logger.Debug("object uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Get downloads an object
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("object %s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to download object %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete removes an object
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time limited download link
func (s *S3Store) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if expiresIn <= 0 {
		expiresIn = s.linkExpiry
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// ErrObjectNotFound is returned by Get for a missing key
var ErrObjectNotFound = errors.New("object not found")

// Nop is the store used when object storage is not configured
type Nop struct{}

// Enabled implements Store
func (Nop) Enabled() bool { return false }

// Put implements Store
func (Nop) Put(context.Context, string, []byte, string) error { return ErrDisabled }

// Get implements Store
func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrDisabled }

// Delete implements Store
func (Nop) Delete(context.Context, string) error { return ErrDisabled }

// PresignGet implements Store
func (Nop) PresignGet(context.Context, string, time.Duration) (string, error) { return "", ErrDisabled }

// CheckpointKey is the object key of a mirrored checkpoint
func CheckpointKey(productionID, checkpointID string) string {
	return fmt.Sprintf("checkpoints/%s/%s.json", productionID, checkpointID)
}

// ReportKey is the object key of an emailed report PDF
func ReportKey(productionID string, at time.Time) string {
	return fmt.Sprintf("reports/%s/%s-notes.pdf", productionID, at.UTC().Format("20060102T150405Z"))
}
