// Package s3 provides an S3-backed blob store for menu images. It works with
// AWS S3 and S3-compatible services (LocalStack, MinIO) via an endpoint
// override.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the S3 blob store.
type Config struct {
	// Bucket is the bucket holding menu images.
	Bucket string

	// PublicBaseURL is the URL prefix under which objects are publicly
	// served (CDN or bucket website endpoint). Issued URLs are
	// "{PublicBaseURL}/{key}".
	PublicBaseURL string

	// Region is the AWS region. Default: us-east-1.
	Region string

	// EndpointURL overrides the S3 endpoint for local development
	// (LocalStack, MinIO). Empty means the real AWS endpoint.
	EndpointURL string

	// AccessKeyID and SecretAccessKey are static credentials for local
	// development. Empty means the default credential chain.
	AccessKeyID     string
	SecretAccessKey string
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.PublicBaseURL == "" {
		return errors.New("public base URL is required")
	}
	return nil
}

// Store implements blob.Store using S3.
type Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewStore creates a new S3-backed blob store.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 config: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// Path-style addressing for LocalStack/MinIO
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Put writes an object under key and returns its public URL.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("Stored object")

	return s.baseURL + "/" + key, nil
}

// Delete removes the object stored under key.
// S3 treats deleting an absent key as success, matching blob.Store semantics.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Msg("Deleted object")

	return nil
}
