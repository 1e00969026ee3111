package objstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a bucket or object does not exist.
var ErrNotFound = errors.New("objstore: not found")

// Store is the listing and fetch contract the audit reader depends on.
//
// ListObjects returns every key under prefix in lexicographic order. Log
// writers name objects with zero-padded timestamps, so this order is also
// chronological; the store does not check that.
//
// GetObject returns the object body positioned at offset 0. The caller must
// close it.
type Store interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Provider() string
}
