// Package prometheus exports datastore metrics with the Prometheus client.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/diskstore"
)

var _ diskstore.MetricsCollector = (*Collector)(nil)

// Collector implements diskstore.MetricsCollector.
//
// Register it with a prometheus.Registerer before use:
//
//	c := prometheus.NewCollector("myapp")
//	reg.MustRegister(c)
//	ds, _ := diskstore.Open(ctx, "default", diskstore.WithMetricsCollector(c))
type Collector struct {
	opLatency     *prometheus.HistogramVec
	records       *prometheus.CounterVec
	populateQuery prometheus.Counter
	snapshotBytes prometheus.Histogram
}

// NewCollector creates a collector whose metric names start with namespace.
// An empty namespace defaults to "diskstore".
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "diskstore"
	}
	return &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of datastore operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records returned, inserted, updated or destroyed",
		}, []string{"op"}),
		populateQuery: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "populate_queries_total",
			Help:      "Child queries issued by populate",
		}),
		snapshotBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_size_bytes",
			Help:      "Size of written snapshots",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.opLatency.Describe(ch)
	c.records.Describe(ch)
	c.populateQuery.Describe(ch)
	c.snapshotBytes.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.opLatency.Collect(ch)
	c.records.Collect(ch)
	c.populateQuery.Collect(ch)
	c.snapshotBytes.Collect(ch)
}

func (c *Collector) observe(op string, n int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.opLatency.WithLabelValues(op, status).Observe(d.Seconds())
	if err == nil && n > 0 {
		c.records.WithLabelValues(op).Add(float64(n))
	}
}

// RecordInsert implements diskstore.MetricsCollector.
func (c *Collector) RecordInsert(count int, d time.Duration, err error) {
	c.observe("insert", count, d, err)
}

// RecordFind implements diskstore.MetricsCollector.
func (c *Collector) RecordFind(results int, d time.Duration, err error) {
	c.observe("find", results, d, err)
}

// RecordAggregate implements diskstore.MetricsCollector.
func (c *Collector) RecordAggregate(op string, matches int, d time.Duration, err error) {
	c.observe(op, matches, d, err)
}

// RecordUpdate implements diskstore.MetricsCollector.
func (c *Collector) RecordUpdate(updated int, d time.Duration, err error) {
	c.observe("update", updated, d, err)
}

// RecordDestroy implements diskstore.MetricsCollector.
func (c *Collector) RecordDestroy(destroyed int, d time.Duration, err error) {
	c.observe("destroy", destroyed, d, err)
}

// RecordPopulate implements diskstore.MetricsCollector.
func (c *Collector) RecordPopulate(queries int, d time.Duration, err error) {
	c.observe("populate", 0, d, err)
	c.populateQuery.Add(float64(queries))
}

// RecordSnapshot implements diskstore.MetricsCollector.
func (c *Collector) RecordSnapshot(bytes int, d time.Duration, err error) {
	c.observe("snapshot", 0, d, err)
	if err == nil {
		c.snapshotBytes.Observe(float64(bytes))
	}
}
