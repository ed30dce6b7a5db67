package objectstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/service"
)

// Backends of the object stores
const (
	BackendS3     = "s3"
	BackendGCS    = "gs"
	BackendMinio  = "minio"
	BackendMemory = "memory"
)

// Config selects and configures an object store
type Config struct {
	Backend string
	S3      S3Config
	Minio   MinioConfig
}

// New creates the object store of the backend
func New(ctx context.Context, config Config) (Store, error) {
	switch config.Backend {
	case BackendS3:
		return NewS3Store(ctx, config.S3)
	case BackendGCS:
		return NewGCSStore(ctx)
	case BackendMinio:
		return NewMinioStore(config.Minio)
	case BackendMemory:
		return NewMemoryStore("s3"), nil
	}
	return nil, fmt.Errorf("unknown object store backend %q (expecting one of %s, %s, %s)", config.Backend, BackendS3, BackendGCS, BackendMinio)
}

// NewWriter returns the store if it handles the scheme of the url,
// otherwise the geocube storage strategies (local, gs...)
func NewWriter(store Store, url string) Writer {
	if store != nil {
		if scheme, _, _, err := common.ParseObjectURL(url); err == nil && strings.EqualFold(scheme, store.Scheme()) {
			return store
		}
	}
	return service.StorageStrategy{}
}
