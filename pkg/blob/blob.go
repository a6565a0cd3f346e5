// Package blob reads import files from object storage. Drivers live in the
// subpackages: gcs and s3 for cloud buckets, fs and memory for local runs.
package blob

import (
	"context"
	"io"
	"strings"

	"github.com/iota-uz/sentencing-etl/pkg/serrors"
)

type Driver string

const (
	DriverGCS        Driver = "gcs"
	DriverS3         Driver = "s3"
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
)

var (
	ErrNotFound   = serrors.NewError("BLOB_NOT_FOUND", "object not found")
	ErrInvalidKey = serrors.NewError("BLOB_INVALID_KEY", "invalid bucket or object name")
)

type Fetcher interface {
	// Get opens bucket/object for reading. Missing objects return ErrNotFound.
	Get(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type Store interface {
	Fetcher
	Driver() Driver
	Put(ctx context.Context, bucket, object string, r io.Reader, contentType string) error
}

// CheckKey rejects empty names and object names that could escape a bucket.
func CheckKey(bucket, object string) error {
	if strings.TrimSpace(bucket) == "" || strings.TrimSpace(object) == "" {
		return ErrInvalidKey
	}
	if strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return ErrInvalidKey
	}
	if strings.HasPrefix(object, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(object, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
