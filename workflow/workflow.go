package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airbusgeo/geocube/interface/messaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/discovery"
	"github.com/airbusgeo/stac-ingester/events"
	"github.com/airbusgeo/stac-ingester/interface/objectstore"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/service/log"
	"github.com/airbusgeo/stac-ingester/stac"
)

// DefaultMaxParallel is the default number of files handled concurrently by HandleBatch
const DefaultMaxParallel = 8

// Workflow drives the discovery of the files and the build of their items
type Workflow struct {
	lister    objectstore.Lister
	builder   *stac.Builder
	offloader stac.Offloader
	// fileQueue receives the events of the discovered files. If nil, the files are handled synchronously
	fileQueue   messaging.Publisher
	MaxParallel int
}

// NewWorkflow creates a new Workflow
func NewWorkflow(lister objectstore.Lister, builder *stac.Builder, offloader stac.Offloader, fileQueue messaging.Publisher) *Workflow {
	return &Workflow{
		lister:      lister,
		builder:     builder,
		offloader:   offloader,
		fileQueue:   fileQueue,
		MaxParallel: DefaultMaxParallel,
	}
}

// Discover returns one batch of files
func (wf *Workflow) Discover(ctx context.Context, req *common.DiscoveryRequest) (*common.DiscoveryBatch, error) {
	if wf.lister == nil {
		return nil, fmt.Errorf("Discover: no object store configured")
	}
	return discovery.Discover(ctx, wf.lister, req)
}

// RunDiscovery invokes Discover with the cursor of the previous batch until no cursor is returned.
// The events of the files are published on the file queue, or handled synchronously if there is no queue.
// It returns the number of files and the results of the files handled synchronously.
func (wf *Workflow) RunDiscovery(ctx context.Context, req common.DiscoveryRequest) (int, []common.Result, error) {
	ctx = log.With(ctx, "discovery", common.ObjectURL(wf.scheme(), req.Bucket, req.Prefix))
	var results []common.Result
	nbFiles, nbBatches := 0, 0
	next := &req
	for next != nil {
		batch, err := wf.Discover(ctx, next)
		if err != nil {
			return nbFiles, results, fmt.Errorf("RunDiscovery.%w", err)
		}
		nbBatches++
		nbFiles += len(batch.Objects)
		log.Logger(ctx).Sugar().Debugf("batch %d: %d files", nbBatches, len(batch.Objects))

		if wf.fileQueue != nil {
			if err := wf.publish(ctx, batch); err != nil {
				return nbFiles, results, fmt.Errorf("RunDiscovery.%w", err)
			}
		} else {
			results = append(results, wf.HandleBatch(ctx, batch)...)
		}

		next = nil
		if batch.More() {
			next = batch.Next()
		}
	}
	log.Logger(ctx).Sugar().Infof("discovery done: %d files in %d batches", nbFiles, nbBatches)
	return nbFiles, results, nil
}

func (wf *Workflow) scheme() string {
	if wf.lister == nil {
		return ""
	}
	return wf.lister.Scheme()
}

func (wf *Workflow) publish(ctx context.Context, batch *common.DiscoveryBatch) error {
	if len(batch.Objects) == 0 {
		return nil
	}
	payloads := make([][]byte, 0, len(batch.Objects))
	for _, fd := range batch.Objects {
		p, err := EventPayload(fd, batch.FilenameRegex)
		if err != nil {
			return fmt.Errorf("publish.%w", err)
		}
		payloads = append(payloads, p)
	}
	if err := wf.fileQueue.Publish(ctx, payloads...); err != nil {
		return service.MakeTemporary(fmt.Errorf("publish: %w", err))
	}
	return nil
}

// EventPayload returns the event describing the file. The filename_regex of the discovery
// is added to the event, so that the datetime can be found in the filename.
func EventPayload(fd common.FileDescriptor, filenameRegex string) ([]byte, error) {
	b, err := common.MarshalJSON(fd)
	if err != nil || filenameRegex == "" {
		return b, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("EventPayload: %w", err)
	}
	if fields["filename_regex"], err = common.MarshalJSON(filenameRegex); err != nil {
		return nil, fmt.Errorf("EventPayload.%w", err)
	}
	return common.MarshalJSON(fields)
}

// HandleEvent builds the item described by the event and decides whether it is returned inline
func (wf *Workflow) HandleEvent(ctx context.Context, payload []byte) (stac.Output, error) {
	ev, err := events.Parse(payload)
	if err != nil {
		return nil, service.MakeFatal(fmt.Errorf("HandleEvent.%w", err))
	}
	item, err := wf.builder.Build(ctx, ev)
	if err != nil {
		err = fmt.Errorf("HandleEvent.%w", err)
		if service.Validation(err) {
			err = service.MakeFatal(err)
		}
		return nil, err
	}
	return stac.DecideOutput(ctx, item, wf.offloader)
}

// Status returns the status of a file whose handling returned err.
// A fatal error is never retried, even if its cause is temporary.
func Status(err error) common.Status {
	switch {
	case err == nil:
		return common.StatusDONE
	case service.Fatal(err):
		return common.StatusFAILED
	case service.Temporary(err):
		return common.StatusRETRY
	}
	return common.StatusFAILED
}

// HandleFile handles one payload and returns its result
func (wf *Workflow) HandleFile(ctx context.Context, payload []byte) common.Result {
	var header struct {
		Collection    string `json:"collection"`
		RemoteFileURL string `json:"remote_fileurl"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		err = service.MakeFatal(service.ErrInvalidInput{Field: "event", Reason: err.Error()})
		log.Logger(ctx).Warn("failed to handle file", zap.Error(err))
		return common.Result{Type: common.ResultTypeItem, Status: Status(err), Message: err.Error()}
	}
	result := common.Result{
		Type:          common.ResultTypeItem,
		Collection:    header.Collection,
		RemoteFileURL: header.RemoteFileURL,
	}
	out, err := wf.HandleEvent(log.With(ctx, "file", header.RemoteFileURL), payload)
	result.Status = Status(err)
	if err != nil {
		result.Message = err.Error()
		log.Logger(ctx).Warn("failed to handle file", zap.String("file", header.RemoteFileURL), zap.Error(err))
	} else {
		result.Output = out
	}
	return result
}

// HandleBatch handles all the files of the batch concurrently (at most MaxParallel at a time).
// The results are in the order of the files.
func (wf *Workflow) HandleBatch(ctx context.Context, batch *common.DiscoveryBatch) []common.Result {
	results := make([]common.Result, len(batch.Objects))
	g, gctx := errgroup.WithContext(ctx)
	if wf.MaxParallel > 0 {
		g.SetLimit(wf.MaxParallel)
	}
	for i, fd := range batch.Objects {
		i, fd := i, fd
		g.Go(func() error {
			payload, err := EventPayload(fd, batch.FilenameRegex)
			if err != nil {
				results[i] = common.Result{Type: common.ResultTypeItem, Collection: fd.Collection, RemoteFileURL: fd.RemoteFileURL, Status: common.StatusFAILED, Message: err.Error()}
				return nil
			}
			results[i] = wf.HandleFile(gctx, payload)
			return nil
		})
	}
	g.Wait()
	return results
}
