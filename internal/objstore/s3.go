package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultS3Endpoint = "s3.amazonaws.com"
	defaultS3Region   = "us-east-1"
)

// S3Config holds connection parameters for an S3-compatible store.
type S3Config struct {
	Endpoint     string // host[:port] or http(s):// URL
	Region       string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UseSSL       bool
}

// S3Store lists and fetches audit log objects from S3 or an S3-compatible
// service.
type S3Store struct {
	client *minio.Client
}

// NewS3Store constructs a store with static credentials.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("s3: access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = defaultS3Region
	}
	host, secure, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: init client: %w", err)
	}
	return &S3Store{client: client}, nil
}

// ListObjects lists keys under prefix. S3 returns keys in UTF-8 binary order,
// which is kept as is.
func (s *S3Store) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("s3: list %s/%s: %w", bucket, prefix, translateS3Error(obj.Err))
		}
		keys = append(keys, obj.Key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// GetObject opens the object body. Existence is checked up front so a missing
// key fails here instead of on the first read.
func (s *S3Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3: get %s/%s: %w", bucket, key, translateS3Error(err))
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("s3: stat %s/%s: %w", bucket, key, translateS3Error(err))
	}
	return obj, nil
}

func (s *S3Store) Provider() string { return "s3" }

func translateS3Error(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// normalizeEndpoint strips an optional scheme from endpoint. An explicit
// scheme overrides useSSL.
func normalizeEndpoint(endpoint string, useSSL bool) (host string, secure bool, err error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return defaultS3Endpoint, true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), useSSL, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("s3: parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
		secure = true
	case "http":
		secure = false
	default:
		return "", false, fmt.Errorf("s3: endpoint must use http:// or https:// scheme")
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", false, fmt.Errorf("s3: endpoint missing host")
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		return "", false, fmt.Errorf("s3: endpoint must not contain a path")
	}
	return u.Host, secure, nil
}
