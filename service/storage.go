package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/airbusgeo/geocube/interface/storage/uri"
	"github.com/airbusgeo/stac-ingester/common"
	"github.com/google/uuid"
)

// ObjectWriter persists data at the given url
type ObjectWriter interface {
	Write(ctx context.Context, url string, data []byte) error
}

// OffloadConfig configures where the items too large to be returned inline are written
type OffloadConfig struct {
	// URI of the destination, e.g. s3://bucket/prefix
	URI string
}

// Offloader writes json documents under a unique name and returns their address
type Offloader struct {
	uri    string
	writer ObjectWriter
}

// NewOffloader creates a new Offloader
func NewOffloader(cfg OffloadConfig, writer ObjectWriter) (*Offloader, error) {
	if cfg.URI == "" {
		return nil, ErrInvalidInput{Field: "offload uri", Reason: "required"}
	}
	if _, err := uri.ParseUri(cfg.URI); err != nil {
		return nil, ErrInvalidInput{Field: "offload uri", Reason: err.Error()}
	}
	if writer == nil {
		return nil, fmt.Errorf("NewOffloader: writer is nil")
	}
	return &Offloader{uri: strings.TrimRight(cfg.URI, "/"), writer: writer}, nil
}

// Store writes the compact json of v to <uri>/<uuid>.json and returns its url.
// It returns ErrStorageWrite if the write fails.
func (o *Offloader) Store(ctx context.Context, v any) (string, error) {
	data, err := common.MarshalJSON(v)
	if err != nil {
		return "", fmt.Errorf("Store.%w", err)
	}
	url := o.uri + "/" + uuid.New().String() + ".json"
	if err := o.writer.Write(ctx, url, data); err != nil {
		return "", ErrStorageWrite{URL: url, Err: err}
	}
	return url, nil
}

// StorageStrategy implements ObjectWriter using the geocube storage strategies
// (local filesystem, gs://...), the storage being chosen with the scheme of each url
type StorageStrategy struct{}

// Write implements ObjectWriter
func (StorageStrategy) Write(ctx context.Context, url string, data []byte) error {
	u, err := uri.ParseUri(url)
	if err != nil {
		return fmt.Errorf("Write.ParseURI: %w", err)
	}
	storage, err := u.NewStorageStrategy(ctx)
	if err != nil {
		return fmt.Errorf("Write.NewStorageStrategy: %w", err)
	}
	if err := storage.UploadFile(ctx, u.String(), io.NopCloser(bytes.NewReader(data))); err != nil {
		return fmt.Errorf("Write.UploadFile to %s: %w", url, err)
	}
	return nil
}
