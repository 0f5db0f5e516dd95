// Package storage uploads images to an S3-compatible bucket and hands back
// their public URLs.
package storage

import "context"

// BucketOptions configures a bucket created on first use.
type BucketOptions struct {
	Public        bool
	FileSizeLimit int64
}

// ObjectStore is the subset of an object storage backend the uploader needs.
type ObjectStore interface {
	// ListBuckets returns the names of all buckets visible to the credentials.
	ListBuckets(ctx context.Context) ([]string, error)

	// CreateBucket creates a bucket with the given options.
	CreateBucket(ctx context.Context, name string, opts BucketOptions) error

	// PutObject writes body under key, replacing any existing object.
	PutObject(ctx context.Context, bucket, key, contentType string, body []byte) error

	// DeleteObject removes the object stored under key.
	DeleteObject(ctx context.Context, bucket, key string) error

	// PublicURL returns the address the object is served from.
	PublicURL(bucket, key string) (string, error)
}

// Availability is the result of a storage health probe.
type Availability struct {
	Ready   bool   `json:"ready"`
	Bucket  string `json:"bucket"`
	Message string `json:"message"`
}
