package objectstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore implements Store for Google Cloud Storage
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a new GCSStore using the default credentials
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Scheme implements Lister
func (s *GCSStore) Scheme() string {
	return "gs"
}

// ListObjects implements Lister
func (s *GCSStore) ListObjects(ctx context.Context, in ListInput, fn func(Object) bool) error {
	query := &storage.Query{Prefix: in.Prefix, StartOffset: in.StartAfter}
	if err := query.SetAttrSelection([]string{"Name", "Size", "Updated"}); err != nil {
		return fmt.Errorf("GCSStore.ListObjects: %w", err)
	}
	it := s.client.Bucket(in.Bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("GCSStore.ListObjects[gs://%s/%s]: %w", in.Bucket, in.Prefix, err)
		}
		// StartOffset is inclusive
		if attrs.Name == in.StartAfter {
			continue
		}
		if !fn(Object{Key: attrs.Name, Size: attrs.Size, LastModified: attrs.Updated}) {
			return nil
		}
	}
}

// Write implements Writer
func (s *GCSStore) Write(ctx context.Context, url string, data []byte) error {
	bucket, key, err := splitURL(s.Scheme(), url)
	if err != nil {
		return fmt.Errorf("GCSStore.Write: %w", err)
	}
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType(key)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("GCSStore.Write[%s]: %w", url, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCSStore.Write[%s].Close: %w", url, err)
	}
	return nil
}
