package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client is the subset of the S3 API used by Store.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configures New and NewDDB.
type Options struct {
	// Prefix is prepended to all keys (e.g. "datastores/").
	Prefix string
	// Region overrides the region from the shared AWS config.
	Region string
	// Endpoint overrides the S3 endpoint, e.g. for LocalStack.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
	// Upload tunes multipart uploads.
	Upload UploadConfig
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) func(*Options) {
	return func(o *Options) { o.Prefix = prefix }
}

// WithRegion sets the AWS region.
func WithRegion(region string) func(*Options) {
	return func(o *Options) { o.Region = region }
}

// WithEndpoint sets a custom endpoint and enables path-style addressing.
func WithEndpoint(endpoint string) func(*Options) {
	return func(o *Options) {
		o.Endpoint = endpoint
		o.UsePathStyle = true
	}
}

// WithUploadConfig sets the multipart upload configuration.
func WithUploadConfig(cfg UploadConfig) func(*Options) {
	return func(o *Options) { o.Upload = cfg }
}

// UploadConfig configures the S3 uploader.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads. Blobs smaller
	// than one part are written with a single PutObject.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
	})
}

func loadOptions(optFns []func(*Options)) Options {
	o := Options{Upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

func loadConfig(ctx context.Context, o Options) (aws.Config, error) {
	var cfgOpts []func(*config.LoadOptions) error
	if o.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(o.Region))
	}
	return config.LoadDefaultConfig(ctx, cfgOpts...)
}

func newS3Client(cfg aws.Config, o Options) *s3.Client {
	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = o.UsePathStyle
	})
}

// New creates a Store using the default AWS credential chain.
func New(ctx context.Context, bucket string, optFns ...func(*Options)) (*Store, error) {
	o := loadOptions(optFns)
	cfg, err := loadConfig(ctx, o)
	if err != nil {
		return nil, err
	}
	return newStore(newS3Client(cfg, o), bucket, o.Prefix, o.Upload), nil
}

// NewDDB creates a DDBCommitStore using the default AWS credential chain.
// Commits are recorded in the given DynamoDB table under the partition
// "s3://<bucket>/<prefix>".
func NewDDB(ctx context.Context, bucket, table string, optFns ...func(*Options)) (*DDBCommitStore, error) {
	o := loadOptions(optFns)
	cfg, err := loadConfig(ctx, o)
	if err != nil {
		return nil, err
	}
	store := newStore(newS3Client(cfg, o), bucket, o.Prefix, o.Upload)
	baseURI := "s3://" + bucket + "/" + o.Prefix
	return NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), table, baseURI), nil
}
