package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"bistro/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3Store implements ObjectStore on an S3-compatible endpoint such as AWS S3,
// Supabase Storage or MinIO.
type S3Store struct {
	client        *s3.Client
	region        string
	endpoint      string
	publicBaseURL string
	logger        zerolog.Logger

	mu     sync.RWMutex
	limits map[string]int64
}

// NewS3Store creates an S3 client from the storage configuration. Static
// credentials are used when configured, otherwise the default AWS chain.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*S3Store, error) {
	logger = logger.With().Str("component", "s3-store").Logger()

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info().
		Str("region", cfg.Region).
		Str("endpoint", cfg.Endpoint).
		Bool("path_style", cfg.UsePathStyle).
		Msg("S3 store initialised")

	return &S3Store{
		client:        client,
		region:        cfg.Region,
		endpoint:      cfg.Endpoint,
		publicBaseURL: cfg.PublicBaseURL,
		logger:        logger,
		limits:        make(map[string]int64),
	}, nil
}

// ListBuckets returns the names of all visible buckets.
func (s *S3Store) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

// CreateBucket creates the bucket and, for public buckets, attaches a
// read-only policy for anonymous clients.
func (s *S3Store) CreateBucket(ctx context.Context, name string, opts BucketOptions) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}

	if opts.FileSizeLimit > 0 {
		s.mu.Lock()
		s.limits[name] = opts.FileSizeLimit
		s.mu.Unlock()
	}

	if !opts.Public {
		return nil
	}

	if _, err := s.client.DeletePublicAccessBlock(ctx, &s3.DeletePublicAccessBlockInput{
		Bucket: aws.String(name),
	}); err != nil {
		s.logger.Warn().Err(err).Str("bucket", name).Msg("failed to remove public access block")
	}

	policy, err := publicReadPolicy(name)
	if err != nil {
		return err
	}

	if _, err := s.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(name),
		Policy: aws.String(policy),
	}); err != nil {
		return fmt.Errorf("failed to make bucket %s public: %w", name, err)
	}

	s.logger.Info().Str("bucket", name).Msg("public bucket created")

	return nil
}

// PutObject uploads body under key. Existing objects are replaced.
func (s *S3Store) PutObject(ctx context.Context, bucket, key, contentType string, body []byte) error {
	s.mu.RLock()
	limit, ok := s.limits[bucket]
	s.mu.RUnlock()
	if ok && int64(len(body)) > limit {
		return fmt.Errorf("object of %d bytes exceeds bucket limit of %d bytes", len(body), limit)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object (bucket=%s, key=%s): %w", bucket, key, err)
	}

	return nil
}

// DeleteObject removes a single object.
func (s *S3Store) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object (bucket=%s, key=%s): %w", bucket, key, err)
	}
	return nil
}

// PublicURL returns the public address of an object.
func (s *S3Store) PublicURL(bucket, key string) (string, error) {
	return publicURL(s.publicBaseURL, s.endpoint, s.region, bucket, key)
}

// publicURL prefers the configured public base, then the custom endpoint in
// path style, then the regional AWS virtual-hosted address.
func publicURL(base, endpoint, region, bucket, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}

	switch {
	case base != "":
		return url.JoinPath(base, bucket, key)
	case endpoint != "":
		return url.JoinPath(endpoint, bucket, key)
	case region != "":
		return url.JoinPath(fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region), key)
	default:
		return "", fmt.Errorf("no public base URL, endpoint or region configured")
	}
}

func publicReadPolicy(bucket string) (string, error) {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{{
			"Sid":       "PublicRead",
			"Effect":    "Allow",
			"Principal": "*",
			"Action":    []string{"s3:GetObject"},
			"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
		}},
	}

	raw, err := json.Marshal(policy)
	if err != nil {
		return "", fmt.Errorf("failed to encode bucket policy: %w", err)
	}
	return string(raw), nil
}
