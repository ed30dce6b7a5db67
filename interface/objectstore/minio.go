package objectstore

import (
	"bytes"
	"context"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig options of the S3-compatible MinIO store
type MinioConfig struct {
	Endpoint  string // host:port
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	// URLScheme of the object urls (default: s3)
	URLScheme string
}

// MinioStore implements Store for S3-compatible servers
type MinioStore struct {
	client *miniogo.Client
	scheme string
}

// NewMinioStore creates a new MinioStore
func NewMinioStore(config MinioConfig) (*MinioStore, error) {
	client, err := miniogo.New(config.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("NewMinioStore: %w", err)
	}
	scheme := config.URLScheme
	if scheme == "" {
		scheme = "s3"
	}
	return &MinioStore{client: client, scheme: scheme}, nil
}

// Scheme implements Lister
func (s *MinioStore) Scheme() string {
	return s.scheme
}

// ListObjects implements Lister
func (s *MinioStore) ListObjects(ctx context.Context, in ListInput, fn func(Object) bool) error {
	// Cancelling the context stops the listing goroutine
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range s.client.ListObjects(ctx, in.Bucket, miniogo.ListObjectsOptions{
		Prefix:     in.Prefix,
		StartAfter: in.StartAfter,
		Recursive:  true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("MinioStore.ListObjects[%s/%s]: %w", in.Bucket, in.Prefix, obj.Err)
		}
		if !fn(Object{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified}) {
			return nil
		}
	}
	return nil
}

// Write implements Writer
func (s *MinioStore) Write(ctx context.Context, url string, data []byte) error {
	bucket, key, err := splitURL(s.scheme, url)
	if err != nil {
		return fmt.Errorf("MinioStore.Write: %w", err)
	}
	if _, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: contentType(key)}); err != nil {
		return fmt.Errorf("MinioStore.Write[%s]: %w", url, err)
	}
	return nil
}
