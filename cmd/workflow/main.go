package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/airbusgeo/geocube/interface/messaging"
	"github.com/airbusgeo/geocube/interface/messaging/pgqueue"
	"github.com/airbusgeo/geocube/interface/messaging/pubsub"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/airbusgeo/stac-ingester/interface/catalog/cmr"
	"github.com/airbusgeo/stac-ingester/interface/objectstore"
	"github.com/airbusgeo/stac-ingester/interface/raster/gdalinfo"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/service/log"
	"github.com/airbusgeo/stac-ingester/stac"
	"github.com/airbusgeo/stac-ingester/workflow"
)

type config struct {
	AppPort     string
	ApiKey      string
	MaxParallel int

	Store      objectstore.Config
	OffloadURI string
	GdalInfo   string
	CmrURL     string
	CmrToken   string

	PgqDbConnection string
	PsProject       string
	FileQueue       string
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.AppPort, "port", "8080", "port of the workflow api")
	flag.StringVar(&config.ApiKey, "api-key", os.Getenv("API_KEY"), "bearer token required by the http api (optional)")
	flag.IntVar(&config.MaxParallel, "max-parallel", workflow.DefaultMaxParallel, "number of files handled concurrently when there is no file queue")

	// Object store
	flag.StringVar(&config.Store.Backend, "store", objectstore.BackendS3, "object store to discover the files (s3, gs, minio)")
	flag.StringVar(&config.Store.S3.Region, "s3-region", "us-west-2", "s3 region")
	flag.StringVar(&config.Store.S3.Endpoint, "s3-endpoint", "", "custom endpoint for s3-compatible services (optional)")
	flag.BoolVar(&config.Store.S3.UsePathStyle, "s3-path-style", false, "use path-style addressing")
	flag.BoolVar(&config.Store.S3.RequestPayer, "s3-request-payer", false, "list and write requester-pays buckets")
	flag.StringVar(&config.Store.Minio.Endpoint, "minio-endpoint", "", "minio host:port")
	flag.StringVar(&config.Store.Minio.AccessKey, "minio-access-key", os.Getenv("MINIO_ACCESS_KEY"), "minio access key")
	flag.StringVar(&config.Store.Minio.SecretKey, "minio-secret-key", os.Getenv("MINIO_SECRET_KEY"), "minio secret key")
	flag.BoolVar(&config.Store.Minio.UseSSL, "minio-ssl", true, "connect to minio with tls")

	// Items
	flag.StringVar(&config.OffloadURI, "offload-uri", "", "uri where the items too large to be returned inline are written (s3://bucket/prefix, gs://bucket/prefix, local path)")
	flag.StringVar(&config.GdalInfo, "gdalinfo", "gdalinfo", "path of gdalinfo")
	flag.StringVar(&config.CmrURL, "cmr-url", cmr.CMRQueryURL, "CMR granule search endpoint")
	flag.StringVar(&config.CmrToken, "cmr-token", os.Getenv("EDL_TOKEN"), "Earthdata Login bearer token (optional)")

	// Messaging
	flag.StringVar(&config.PgqDbConnection, "pgq-connection", "", "enable pgq messaging system with a connection to the database")
	flag.StringVar(&config.PsProject, "ps-project", "", "pubsub project (gcp only/not required in local usage)")
	flag.StringVar(&config.FileQueue, "file-queue", "", "name of the queue for the discovered files (pgqueue or pubsub topic). If empty, the files are handled by the workflow")
	flag.Parse()

	if config.AppPort == "" {
		return nil, fmt.Errorf("failed to initialize port application flag")
	}
	if config.OffloadURI == "" {
		return nil, fmt.Errorf("missing offload-uri config flag")
	}
	if config.Store.Backend == objectstore.BackendMinio && config.Store.Minio.Endpoint == "" {
		return nil, fmt.Errorf("missing minio-endpoint config flag")
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
	bearerAuths = map[string]string{"default": config.ApiKey}

	// Messaging service
	var filePublisher messaging.Publisher
	var logMessaging string
	if config.FileQueue != "" {
		if config.PgqDbConnection != "" {
			_, w, err := pgqueue.SqlConnect(ctx, config.PgqDbConnection)
			if err != nil {
				return fmt.Errorf("MessagingService: %w", err)
			}
			logMessaging += fmt.Sprintf(" pushing files on pgqueue:%s", config.FileQueue)
			filePublisher = pgqueue.NewPublisher(w, config.FileQueue, pgqueue.WithMaxRetries(5))
		} else {
			logMessaging += fmt.Sprintf(" pushing files on %s/%s", config.PsProject, config.FileQueue)
			publisher, err := pubsub.NewPublisher(ctx, config.PsProject, config.FileQueue, pubsub.WithMaxRetries(5))
			if err != nil {
				return fmt.Errorf("pubsub.NewPublisher(Files): %w", err)
			}
			defer publisher.Stop()
			filePublisher = publisher
		}
	} else {
		logMessaging += " handling the files synchronously"
	}

	store, err := objectstore.New(ctx, config.Store)
	if err != nil {
		return fmt.Errorf("objectstore[%s].%w", config.Store.Backend, err)
	}
	offloader, err := service.NewOffloader(service.OffloadConfig{URI: config.OffloadURI}, objectstore.NewWriter(store, config.OffloadURI))
	if err != nil {
		return fmt.Errorf("offloader[%s].%w", config.OffloadURI, err)
	}
	builder := &stac.Builder{
		Deriver:  &gdalinfo.Deriver{Binary: config.GdalInfo},
		Granules: &cmr.Client{URL: config.CmrURL, Token: config.CmrToken},
	}

	// Create Workflow Server
	wf := workflow.NewWorkflow(store, builder, offloader, filePublisher)
	wf.MaxParallel = config.MaxParallel
	router := wf.NewHandler()
	headersOk := handlers.AllowedHeaders([]string{"*"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
	s := http.Server{
		Addr:    ":" + config.AppPort,
		Handler: handlers.CORS(originsOk, headersOk, methodsOk)(BearerAuthenticate(router)),
	}

	log.Logger(ctx).Debug("workflow starts on port " + config.AppPort + logMessaging)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}
