// Package discovery lists the objects of a bucket prefix and emits them as
// byte-bounded batches. Each call is stateless: the batch carries the cursor
// (start_after) that the caller sends back to get the next batch.
package discovery

import (
	"context"
	"fmt"
	"regexp"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/interface/objectstore"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/service/log"
)

// BatchBudget is the maximum size in bytes of the serialized descriptors of a batch.
// Payloads are limited to 256KB downstream, the remainder is left for the envelope.
const BatchBudget = 230000

// Discover returns the next batch of objects matching the request.
// A descriptor is always added to an empty batch, even if it exceeds BatchBudget on its own.
func Discover(ctx context.Context, lister objectstore.Lister, req *common.DiscoveryRequest) (*common.DiscoveryBatch, error) {
	return discover(ctx, lister, req, BatchBudget)
}

func discover(ctx context.Context, lister objectstore.Lister, req *common.DiscoveryRequest, budget int) (*common.DiscoveryBatch, error) {
	if req.Bucket == "" {
		return nil, service.ErrInvalidInput{Field: "bucket", Reason: "required"}
	}
	var filter *regexp.Regexp
	if req.FilenameRegex != "" {
		var err error
		if filter, err = regexp.Compile(req.FilenameRegex); err != nil {
			return nil, service.ErrInvalidInput{Field: "filename_regex", Reason: err.Error()}
		}
	}

	batch := &common.DiscoveryBatch{DiscoveryRequest: *req, Objects: []common.FileDescriptor{}}
	batch.StartAfter = ""

	var (
		listed    int
		totalSize int
		lastKey   string
		sizeErr   error
	)
	err := lister.ListObjects(ctx, objectstore.ListInput{Bucket: req.Bucket, Prefix: req.Prefix, StartAfter: req.StartAfter},
		func(obj objectstore.Object) bool {
			listed++
			if filter != nil && !matchFromStart(filter, obj.Key) {
				return true
			}
			descriptor := newFileDescriptor(lister.Scheme(), req, obj.Key)
			size, err := common.JSONSize(descriptor)
			if err != nil {
				sizeErr = err
				return false
			}
			if len(batch.Objects) > 0 && totalSize+size > budget {
				batch.StartAfter = lastKey
				return false
			}
			batch.Objects = append(batch.Objects, descriptor)
			totalSize += size
			lastKey = obj.Key
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("Discover.%w", err)
	}
	if sizeErr != nil {
		return nil, fmt.Errorf("Discover.JSONSize: %w", sizeErr)
	}
	if listed == 0 {
		return nil, service.ErrNotFound{URL: common.ObjectURL(lister.Scheme(), req.Bucket, req.Prefix)}
	}

	log.Logger(ctx).Sugar().Debugf("discovered %d objects (%d bytes) in %s://%s/%s after %q, next: %q",
		len(batch.Objects), totalSize, lister.Scheme(), req.Bucket, req.Prefix, req.StartAfter, batch.StartAfter)
	return batch, nil
}

func newFileDescriptor(scheme string, req *common.DiscoveryRequest, key string) common.FileDescriptor {
	properties := req.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	return common.FileDescriptor{
		Collection:        req.GetCollection(),
		RemoteFileURL:     common.ObjectURL(scheme, req.Bucket, key),
		Upload:            req.Upload,
		UserShared:        req.UserShared,
		Ingest:            req.GetIngest(),
		Properties:        properties,
		GdalConfigOptions: req.GdalConfigOptions,
		DateFields:        req.DateFields,
	}
}

// matchFromStart returns true if the regexp matches a prefix of s
func matchFromStart(re *regexp.Regexp, s string) bool {
	idx := re.FindStringIndex(s)
	return idx != nil && idx[0] == 0
}
