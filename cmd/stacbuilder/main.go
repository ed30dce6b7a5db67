package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/airbusgeo/geocube/interface/messaging"
	"github.com/airbusgeo/geocube/interface/messaging/pgqueue"
	"github.com/airbusgeo/geocube/interface/messaging/pubsub"
	"go.uber.org/zap"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/interface/catalog/cmr"
	"github.com/airbusgeo/stac-ingester/interface/objectstore"
	"github.com/airbusgeo/stac-ingester/interface/raster/gdalinfo"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/service/log"
	"github.com/airbusgeo/stac-ingester/stac"
	"github.com/airbusgeo/stac-ingester/workflow"
)

type config struct {
	Store      objectstore.Config
	OffloadURI string
	GdalInfo   string
	CmrURL     string
	CmrToken   string

	PgqDbConnection string
	PsProject       string
	FileQueue       string
	ResultQueue     string
}

func newAppConfig() (*config, error) {
	config := config{}
	// Storage of the large items
	flag.StringVar(&config.OffloadURI, "offload-uri", "", "uri where the items too large to be returned inline are written (s3://bucket/prefix, gs://bucket/prefix, local path)")
	flag.StringVar(&config.Store.Backend, "store", objectstore.BackendS3, "object store of the offload-uri (s3, gs, minio)")
	flag.StringVar(&config.Store.S3.Region, "s3-region", "us-west-2", "s3 region")
	flag.StringVar(&config.Store.S3.Endpoint, "s3-endpoint", "", "custom endpoint for s3-compatible services (optional)")
	flag.BoolVar(&config.Store.S3.UsePathStyle, "s3-path-style", false, "use path-style addressing")
	flag.StringVar(&config.Store.Minio.Endpoint, "minio-endpoint", "", "minio host:port")
	flag.StringVar(&config.Store.Minio.AccessKey, "minio-access-key", os.Getenv("MINIO_ACCESS_KEY"), "minio access key")
	flag.StringVar(&config.Store.Minio.SecretKey, "minio-secret-key", os.Getenv("MINIO_SECRET_KEY"), "minio secret key")
	flag.BoolVar(&config.Store.Minio.UseSSL, "minio-ssl", true, "connect to minio with tls")

	// Metadata
	flag.StringVar(&config.GdalInfo, "gdalinfo", "gdalinfo", "path of gdalinfo")
	flag.StringVar(&config.CmrURL, "cmr-url", cmr.CMRQueryURL, "CMR granule search endpoint")
	flag.StringVar(&config.CmrToken, "cmr-token", os.Getenv("EDL_TOKEN"), "Earthdata Login bearer token (optional)")

	// Messaging
	flag.StringVar(&config.PgqDbConnection, "pgq-connection", "", "enable pgq messaging system with a connection to the database")
	flag.StringVar(&config.PsProject, "ps-project", "", "pubsub subscription project (gcp only/not required in local usage)")
	flag.StringVar(&config.FileQueue, "file-queue", "", "name of the queue for the discovered files (pgqueue or pubsub subscription)")
	flag.StringVar(&config.ResultQueue, "result-queue", "", "name of the queue for the results (pgqueue or pubsub topic)")
	flag.Parse()

	if config.OffloadURI == "" {
		return nil, fmt.Errorf("missing offload-uri config flag")
	}
	if config.FileQueue == "" {
		return nil, fmt.Errorf("missing file-queue config flag")
	}
	return &config, nil
}

func main() {
	ctx := context.Background()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}

	var resultPublisher messaging.Publisher
	var fileConsumer messaging.Consumer
	var logMessaging string
	{
		if config.PgqDbConnection != "" {
			db, w, err := pgqueue.SqlConnect(ctx, config.PgqDbConnection)
			if err != nil {
				return fmt.Errorf("MessagingService: %w", err)
			}
			logMessaging += fmt.Sprintf(" pulling on pgqueue:%s", config.FileQueue)
			consumer := pgqueue.NewConsumer(db, config.FileQueue)
			defer consumer.Stop()
			fileConsumer = consumer
			if config.ResultQueue != "" {
				logMessaging += fmt.Sprintf(" pushing on pgqueue:%s", config.ResultQueue)
				resultPublisher = pgqueue.NewPublisher(w, config.ResultQueue, pgqueue.WithMaxRetries(5))
			}
		} else if config.PsProject != "" {
			logMessaging += fmt.Sprintf(" pulling on %s/%s", config.PsProject, config.FileQueue)
			if fileConsumer, err = pubsub.NewConsumer(config.PsProject, config.FileQueue); err != nil {
				return fmt.Errorf("pubsub.NewConsumer: %w", err)
			}
			if config.ResultQueue != "" {
				logMessaging += fmt.Sprintf(" pushing on %s/%s", config.PsProject, config.ResultQueue)
				resultTopic, err := pubsub.NewPublisher(ctx, config.PsProject, config.ResultQueue, pubsub.WithMaxRetries(5))
				if err != nil {
					return fmt.Errorf("messaging.NewPublisher: %w", err)
				}
				defer resultTopic.Stop()
				resultPublisher = resultTopic
			}
		}
	}
	if fileConsumer == nil {
		return fmt.Errorf("missing configuration for messaging.FileConsumer")
	}
	if resultPublisher == nil {
		return fmt.Errorf("missing configuration for messaging.ResultPublisher")
	}

	var store objectstore.Store
	if config.Store.Backend != "" {
		if store, err = objectstore.New(ctx, config.Store); err != nil {
			return fmt.Errorf("objectstore[%s].%w", config.Store.Backend, err)
		}
	}
	offloader, err := service.NewOffloader(service.OffloadConfig{URI: config.OffloadURI}, objectstore.NewWriter(store, config.OffloadURI))
	if err != nil {
		return fmt.Errorf("offloader[%s].%w", config.OffloadURI, err)
	}
	builder := &stac.Builder{
		Deriver:  &gdalinfo.Deriver{Binary: config.GdalInfo},
		Granules: &cmr.Client{URL: config.CmrURL, Token: config.CmrToken},
	}
	wf := workflow.NewWorkflow(nil, builder, offloader, nil)

	maxTries := 15 //Must be less than the configured number of tries of the pubsub topic

	log.Logger(ctx).Debug("stacbuilder starts" + logMessaging)
	for {
		err := fileConsumer.Pull(ctx, func(ctx context.Context, msg *messaging.Message) error {
			ctx = log.With(ctx, "msgID", msg.ID)
			log.Logger(log.With(ctx, "body", string(msg.Data))).Sugar().Debugf("message %s try %d", msg.ID, msg.TryCount)

			// Fatal and permanent failures are FAILED: the result is published and the message acked
			result := wf.HandleFile(ctx, msg.Data)
			if result.Status == common.StatusRETRY {
				if msg.TryCount < maxTries {
					return service.MakeTemporary(fmt.Errorf("failed to build %s: %s", result.RemoteFileURL, result.Message))
				}
				result.Status = common.StatusFAILED
				result.Message = "too many retries: " + result.Message
			}

			resb, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("marshal: %w", err)
			}
			if err := resultPublisher.Publish(ctx, resb); err != nil {
				return service.MakeTemporary(fmt.Errorf("failed to enqueue result: %w", err))
			}
			if result.Status == common.StatusDONE {
				log.Logger(ctx).Sugar().Infof("successfully built the item of %s", result.RemoteFileURL)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("ps.process: %w", err)
		}
	}
}
