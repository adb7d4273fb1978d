// Package storage opens ETL input files from the local disk or S3-compatible storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cashflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// S3Scheme prefixes object locations, as in s3://bucket/key
const S3Scheme = "s3://"

// ErrObjectNotFound is returned when the bucket or key does not exist
var ErrObjectNotFound = errors.New("object not found")

// S3Source reads objects through the AWS S3 SDK v2.
// It works with any S3-compatible storage (AWS S3, MinIO, RustFS, etc.)
type S3Source struct {
	client *s3.Client
	logger *zap.Logger
}

// S3SourceOption is a functional option for configuring S3Source
type S3SourceOption func(*S3Source)

// WithLogger sets a custom logger for S3Source
func WithLogger(logger *zap.Logger) S3SourceOption {
	return func(s *S3Source) {
		s.logger = logger
	}
}

// NewS3Source creates an S3Source from configuration.
// An empty endpoint uses the AWS default resolver.
func NewS3Source(cfg *config.S3Config, opts ...S3SourceOption) (*S3Source, error) {
	if cfg == nil {
		return nil, errors.New("s3 configuration is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("s3 access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("s3 secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid s3 endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	source := &S3Source{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(source)
	}
	return source, nil
}

// Open streams the object behind an s3://bucket/key location.
// The caller closes the returned reader.
func (s *S3Source) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var noSuchBucket *types.NoSuchBucket
		if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, location)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", location, err)
	}

	s.logger.Debug("Opened S3 object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("size", aws.ToInt64(out.ContentLength)),
	)
	return out.Body, nil
}

// ParseS3Location splits s3://bucket/key into its parts
func ParseS3Location(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 location %q has no bucket", location)
	}
	if key == "" {
		return "", "", fmt.Errorf("s3 location %q has no key", location)
	}
	return bucket, key, nil
}
