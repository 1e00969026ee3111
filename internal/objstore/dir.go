package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DirStore serves buckets from directories under a local root. Keys are
// slash-separated paths relative to the bucket directory.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at root, which must be an existing
// directory.
func NewDirStore(root string) (*DirStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("dirstore: root is empty")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("dirstore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dirstore: %s is not a directory", root)
	}
	return &DirStore{root: root}, nil
}

// ListObjects walks the bucket directory and returns matching keys sorted
// lexicographically, matching S3 listing order.
func (d *DirStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	bucketDir, err := d.bucketDir(bucket)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = filepath.WalkDir(bucketDir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(bucketDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dirstore: list %s: %w", bucket, ErrNotFound)
		}
		return nil, fmt.Errorf("dirstore: list %s: %w", bucket, err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (d *DirStore) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	bucketDir, err := d.bucketDir(bucket)
	if err != nil {
		return nil, err
	}
	clean := path.Clean("/" + key)
	if clean == "/" || clean != "/"+key {
		return nil, fmt.Errorf("dirstore: invalid key %q", key)
	}

	f, err := os.Open(filepath.Join(bucketDir, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dirstore: get %s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("dirstore: get %s/%s: %w", bucket, key, err)
	}
	return f, nil
}

func (d *DirStore) Provider() string { return "dir" }

func (d *DirStore) bucketDir(bucket string) (string, error) {
	if bucket == "" || bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("dirstore: invalid bucket %q", bucket)
	}
	return filepath.Join(d.root, bucket), nil
}
