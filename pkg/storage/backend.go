// Package storage keeps session snapshots and exports in a local directory or
// an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	// ErrExists is returned by Create when the key is already taken.
	ErrExists = errors.New("blob already exists")
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("blob not found")
)

// BlobStore is a flat key/value store. Keys use forward slashes on every backend.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	// Create writes data only if key does not exist yet.
	Create(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Open returns the backend addressed by rawURL: s3://bucket/prefix for S3,
// anything else is a local directory.
func Open(ctx context.Context, rawURL, region string) (BlobStore, error) {
	if !strings.HasPrefix(rawURL, "s3://") {
		return NewLocalStore(strings.TrimPrefix(rawURL, "file://")), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse storage url %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("storage url %q has no bucket", rawURL)
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewS3Store(s3.NewFromConfig(cfg), u.Host, strings.Trim(u.Path, "/")), nil
}
