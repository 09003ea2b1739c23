package diskstore

import (
	"log/slog"

	"github.com/hupe1980/diskstore/blobstore"
	"github.com/hupe1980/diskstore/codec"
	"github.com/hupe1980/diskstore/criteria"
	"github.com/hupe1980/diskstore/persistence"
	"github.com/hupe1980/diskstore/resource"
)

type options struct {
	store            blobstore.BlobStore
	dir              string
	snapshotName     string
	codec            codec.Codec
	compression      persistence.Compression
	encryptionKey    []byte
	writeRate        int64
	populateWorkers  int64
	queueSize        int
	exclusive        bool
	pkUpdates        bool
	criteria         criteria.Options
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a datastore.
type Option func(*options)

// WithBlobStore stores the snapshot in s. It takes precedence over WithDir.
//
// Example:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("snapshots/"))
//	ds, _ := diskstore.Open(ctx, "default", diskstore.WithBlobStore(s3Store))
func WithBlobStore(s blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithDir stores the snapshot in a local directory, which is created if
// missing.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithSnapshotName sets the blob name of the snapshot. Defaults to
// "<identity>.db".
func WithSnapshotName(name string) Option {
	return func(o *options) {
		o.snapshotName = name
	}
}

// WithCodec configures the codec used for writing snapshots.
//
// If nil is passed, codec.Default is used. Snapshots written with a codec
// other than JSON, or with compression or encryption, carry an envelope.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithCompression compresses written snapshots.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithEncryptionKey encrypts snapshots with XChaCha20-Poly1305. The key must
// be persistence.KeySize bytes. It is also required to read a snapshot that
// was written encrypted.
func WithEncryptionKey(key []byte) Option {
	return func(o *options) {
		o.encryptionKey = append([]byte(nil), key...)
	}
}

// WithWriteRateLimit caps snapshot write throughput in bytes per second.
// Zero means unlimited.
func WithWriteRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.writeRate = bytesPerSec
	}
}

// WithPopulateConcurrency sets the maximum number of child queries a
// populate runs at once. Defaults to resource.DefaultWorkers.
func WithPopulateConcurrency(n int) Option {
	return func(o *options) {
		o.populateWorkers = int64(n)
	}
}

// WithWriteQueueSize sets how many snapshot writes may wait for the writer.
func WithWriteQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithExclusiveLock controls whether the datastore holds the blob store's
// lock on the snapshot while open. Enabled by default; only stores that
// implement blobstore.Locker are locked.
func WithExclusiveLock(enabled bool) Option {
	return func(o *options) {
		o.exclusive = enabled
	}
}

// WithPrimaryKeyUpdates allows updates to change primary key values. When
// disabled (the default) such updates fail with ErrPrimaryKeyImmutable.
func WithPrimaryKeyUpdates(enabled bool) Option {
	return func(o *options) {
		o.pkUpdates = enabled
	}
}

// WithCriteriaOptions sets how where clauses are evaluated, including the
// policy for {"!=": null} on empty arrays.
func WithCriteriaOptions(opts criteria.Options) Option {
	return func(o *options) {
		o.criteria = opts
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &diskstore.BasicMetricsCollector{}
//	ds, _ := diskstore.Open(ctx, "default", diskstore.WithMetricsCollector(metrics))
//	// ... use ds ...
//	stats := metrics.GetStats()
//	fmt.Printf("Finds: %d, Avg latency: %dns\n", stats.FindCount, stats.FindAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := diskstore.NewJSONLogger(slog.LevelInfo)
//	ds, _ := diskstore.Open(ctx, "default", diskstore.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		exclusive:        true,
		queueSize:        64,
		criteria:         criteria.DefaultOptions(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.codec == nil {
		o.codec = codec.Default
	}
	return o
}

func (o options) format() persistence.Format {
	return persistence.Format{
		Codec:       o.codec,
		Compression: o.compression,
		Key:         o.encryptionKey,
	}
}

func (o options) resources() *resource.Controller {
	return resource.NewController(resource.Config{
		MaxWorkers:         o.populateWorkers,
		IOLimitBytesPerSec: o.writeRate,
	})
}
