package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3PageSize = 1000

// S3Config options of the S3 store
type S3Config struct {
	Region          string
	AccessKeyID     string // Optional: default credential chain if empty
	SecretAccessKey string
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool
	RequestPayer    bool
}

// S3Store implements Store for AWS S3
type S3Store struct {
	client       *s3.Client
	uploader     *manager.Uploader
	requestPayer bool
}

// NewS3Store creates a new S3Store
func NewS3Store(ctx context.Context, config S3Config) (*S3Store, error) {
	if config.Region == "" {
		config.Region = "us-west-2"
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewS3Store.LoadDefaultConfig: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})
	return &S3Store{
		client:       client,
		uploader:     manager.NewUploader(client),
		requestPayer: config.RequestPayer,
	}, nil
}

// Scheme implements Lister
func (s *S3Store) Scheme() string {
	return "s3"
}

// ListObjects implements Lister
func (s *S3Store) ListObjects(ctx context.Context, in ListInput, fn func(Object) bool) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(in.Bucket),
		Prefix: aws.String(in.Prefix),
	}
	if in.StartAfter != "" {
		input.StartAfter = aws.String(in.StartAfter)
	}
	if s.requestPayer {
		input.RequestPayer = "requester"
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, input, func(o *s3.ListObjectsV2PaginatorOptions) {
		o.Limit = s3PageSize
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("S3Store.ListObjects[s3://%s/%s]: %w", in.Bucket, in.Prefix, err)
		}
		for _, object := range page.Contents {
			if !fn(Object{
				Key:          aws.ToString(object.Key),
				Size:         aws.ToInt64(object.Size),
				LastModified: aws.ToTime(object.LastModified),
			}) {
				return nil
			}
		}
	}
	return nil
}

// Write implements Writer
func (s *S3Store) Write(ctx context.Context, url string, data []byte) error {
	bucket, key, err := splitURL(s.Scheme(), url)
	if err != nil {
		return fmt.Errorf("S3Store.Write: %w", err)
	}
	if bucket == "" {
		return errors.New("S3Store.Write: bucket name is required")
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(key)),
	}
	if s.requestPayer {
		input.RequestPayer = "requester"
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("S3Store.Write[%s]: %w", url, err)
	}
	return nil
}
