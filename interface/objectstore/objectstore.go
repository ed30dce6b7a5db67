package objectstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airbusgeo/stac-ingester/common"
)

// Object is an entry of a bucket listing
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListInput defines the objects to be listed
type ListInput struct {
	Bucket string
	Prefix string
	// StartAfter is exclusive: only the keys strictly greater are listed
	StartAfter string
}

// Lister is the interface of an object store listing
type Lister interface {
	// ListObjects calls fn for each object of in.Bucket whose key starts with in.Prefix
	// and is strictly greater than in.StartAfter, in lexicographic order of the keys,
	// until fn returns false or the listing is exhausted.
	ListObjects(ctx context.Context, in ListInput, fn func(Object) bool) error
	// Scheme of the urls of the objects (s3, gs...)
	Scheme() string
}

// Writer writes a whole object given its url
type Writer interface {
	Write(ctx context.Context, url string, data []byte) error
}

// Store is a Lister and a Writer
type Store interface {
	Lister
	Writer
}

func splitURL(scheme, url string) (string, string, error) {
	s, bucket, key, err := common.ParseObjectURL(url)
	if err != nil {
		return "", "", err
	}
	if !strings.EqualFold(s, scheme) {
		return "", "", fmt.Errorf("unsupported scheme %s (expecting %s)", s, scheme)
	}
	if key == "" {
		return "", "", fmt.Errorf("missing key in %s", url)
	}
	return bucket, key, nil
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".json") {
		return common.MediaTypeJSON
	}
	return "application/octet-stream"
}
