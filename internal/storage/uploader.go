package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"time"

	"bistro/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxObjectBytes caps a single decoded upload.
	DefaultMaxObjectBytes = 5 * 1024 * 1024

	decodeChunkSize = 64 * 1024
	nameAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	nameSuffixLen   = 6
)

var dataURLPattern = regexp.MustCompile(`^data:(image/[a-zA-Z0-9.+-]+);base64,`)

// Uploader turns image data URLs into public object URLs.
type Uploader struct {
	store    ObjectStore
	bucket   string
	maxBytes int64
	logger   zerolog.Logger

	now   func() time.Time
	step  time.Duration
	timer func() backoff.Timer
}

// NewUploader creates an uploader writing into bucket. A non-positive
// maxBytes falls back to DefaultMaxObjectBytes.
func NewUploader(store ObjectStore, bucket string, maxBytes int64, logger zerolog.Logger) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxObjectBytes
	}

	return &Uploader{
		store:    store,
		bucket:   bucket,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "uploader").Str("bucket", bucket).Logger(),
		now:      time.Now,
		step:     RetryStep,
	}
}

// Bucket returns the bucket images are written to.
func (u *Uploader) Bucket() string {
	return u.bucket
}

// Upload stores the image encoded in dataURL under pathPrefix and returns its
// public URL.
func (u *Uploader) Upload(ctx context.Context, dataURL, pathPrefix string) (string, error) {
	contentType, body, err := u.decode(dataURL)
	if err != nil {
		return "", err
	}

	if err := u.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := u.objectKey(pathPrefix)

	if err := u.store.PutObject(ctx, u.bucket, key, contentType, body); err != nil {
		u.logger.Warn().Err(err).Str("key", key).Msg("failed to upload object")
		return "", fmt.Errorf("%w: %w", model.ErrUpload, err)
	}

	url, err := u.store.PublicURL(u.bucket, key)
	if err != nil {
		u.logger.Warn().Err(err).Str("key", key).Msg("failed to resolve public URL")
		return "", fmt.Errorf("%w: %w", model.ErrURLResolution, err)
	}

	u.logger.Info().
		Str("key", key).
		Int("bytes", len(body)).
		Msg("image uploaded")

	return url, nil
}

// CheckAvailability makes sure the bucket exists and accepts writes by storing
// and removing a small probe object.
func (u *Uploader) CheckAvailability(ctx context.Context) Availability {
	result := Availability{Bucket: u.bucket}

	if err := u.ensureBucket(ctx); err != nil {
		result.Message = err.Error()
		return result
	}

	key := u.objectKey(".probe")
	if err := u.store.PutObject(ctx, u.bucket, key, "text/plain", []byte("ok")); err != nil {
		result.Message = fmt.Sprintf("bucket is not writable: %v", err)
		return result
	}

	if err := u.store.DeleteObject(ctx, u.bucket, key); err != nil {
		u.logger.Warn().Err(err).Str("key", key).Msg("failed to remove probe object")
	}

	result.Ready = true
	result.Message = "storage is ready"
	return result
}

// decode validates the data URL header and decodes its payload in chunks,
// stopping as soon as the size cap is exceeded.
func (u *Uploader) decode(dataURL string) (string, []byte, error) {
	match := dataURLPattern.FindStringSubmatch(dataURL)
	if match == nil {
		return "", nil, model.ErrInvalidImageData
	}
	contentType := match[1]
	payload := dataURL[len(match[0]):]

	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload))
	limited := io.LimitReader(decoder, u.maxBytes+1)

	var buf bytes.Buffer
	if _, err := io.CopyBuffer(&buf, limited, make([]byte, decodeChunkSize)); err != nil {
		return "", nil, fmt.Errorf("%w: %w", model.ErrInvalidImageData, err)
	}

	if int64(buf.Len()) > u.maxBytes {
		return "", nil, fmt.Errorf("%w: more than %d bytes", model.ErrImageTooLarge, u.maxBytes)
	}
	if buf.Len() == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", model.ErrInvalidImageData)
	}

	return contentType, buf.Bytes(), nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	buckets, err := u.store.ListBuckets(ctx)
	if err != nil {
		u.logger.Warn().Err(err).Msg("failed to list buckets")
		return fmt.Errorf("%w: %w", model.ErrStorageUnavailable, err)
	}

	if slices.Contains(buckets, u.bucket) {
		return nil
	}

	u.logger.Info().Msg("bucket missing, creating it")

	err = u.store.CreateBucket(ctx, u.bucket, BucketOptions{Public: true, FileSizeLimit: u.maxBytes})
	if err != nil {
		u.logger.Warn().Err(err).Msg("failed to create bucket")
		return fmt.Errorf("%w: %w", model.ErrStorageUnavailable, err)
	}

	return nil
}

// objectKey builds "{prefix}/{unixMillis}_{random}.jpg".
func (u *Uploader) objectKey(prefix string) string {
	suffix := make([]byte, nameSuffixLen)
	for i := range suffix {
		suffix[i] = nameAlphabet[rand.IntN(len(nameAlphabet))]
	}

	name := fmt.Sprintf("%d_%s.jpg", u.now().UnixMilli(), suffix)

	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
