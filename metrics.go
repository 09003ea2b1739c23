package diskstore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// see package metrics/prometheus for a ready-made implementation.
type MetricsCollector interface {
	// RecordInsert is called after each insert. count is the number of
	// records in the batch.
	RecordInsert(count int, duration time.Duration, err error)

	// RecordFind is called after each find.
	RecordFind(results int, duration time.Duration, err error)

	// RecordAggregate is called after each count, sum and avg. op names the
	// aggregate and matches is the number of records it scanned in.
	RecordAggregate(op string, matches int, duration time.Duration, err error)

	// RecordUpdate is called after each update.
	RecordUpdate(updated int, duration time.Duration, err error)

	// RecordDestroy is called after each destroy.
	RecordDestroy(destroyed int, duration time.Duration, err error)

	// RecordPopulate is called after each populate. queries is the number
	// of child queries issued.
	RecordPopulate(queries int, duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot write.
	RecordSnapshot(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordFind(int, time.Duration, error)              {}
func (NoopMetricsCollector) RecordAggregate(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordUpdate(int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordDestroy(int, time.Duration, error)           {}
func (NoopMetricsCollector) RecordPopulate(int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordSnapshot(int, time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount        atomic.Int64
	InsertRecords      atomic.Int64
	InsertErrors       atomic.Int64
	FindCount          atomic.Int64
	FindErrors         atomic.Int64
	FindTotalNanos     atomic.Int64
	AggregateCount     atomic.Int64
	AggregateErrors    atomic.Int64
	UpdateCount        atomic.Int64
	UpdateErrors       atomic.Int64
	DestroyCount       atomic.Int64
	DestroyErrors      atomic.Int64
	PopulateCount      atomic.Int64
	PopulateQueries    atomic.Int64
	PopulateErrors     atomic.Int64
	SnapshotCount      atomic.Int64
	SnapshotErrors     atomic.Int64
	SnapshotBytes      atomic.Int64
	SnapshotTotalNanos atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(count int, _ time.Duration, err error) {
	b.InsertCount.Add(1)
	if err != nil {
		b.InsertErrors.Add(1)
		return
	}
	b.InsertRecords.Add(int64(count))
}

// RecordFind implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFind(_ int, duration time.Duration, err error) {
	b.FindCount.Add(1)
	b.FindTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FindErrors.Add(1)
	}
}

// RecordAggregate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAggregate(_ string, _ int, _ time.Duration, err error) {
	b.AggregateCount.Add(1)
	if err != nil {
		b.AggregateErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(_ int, _ time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordDestroy implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDestroy(_ int, _ time.Duration, err error) {
	b.DestroyCount.Add(1)
	if err != nil {
		b.DestroyErrors.Add(1)
	}
}

// RecordPopulate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPopulate(queries int, _ time.Duration, err error) {
	b.PopulateCount.Add(1)
	b.PopulateQueries.Add(int64(queries))
	if err != nil {
		b.PopulateErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(bytes int, duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(int64(bytes))
	b.SnapshotTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:      b.InsertCount.Load(),
		InsertRecords:    b.InsertRecords.Load(),
		InsertErrors:     b.InsertErrors.Load(),
		FindCount:        b.FindCount.Load(),
		FindErrors:       b.FindErrors.Load(),
		FindAvgNanos:     avg(b.FindTotalNanos.Load(), b.FindCount.Load()),
		AggregateCount:   b.AggregateCount.Load(),
		AggregateErrors:  b.AggregateErrors.Load(),
		UpdateCount:      b.UpdateCount.Load(),
		UpdateErrors:     b.UpdateErrors.Load(),
		DestroyCount:     b.DestroyCount.Load(),
		DestroyErrors:    b.DestroyErrors.Load(),
		PopulateCount:    b.PopulateCount.Load(),
		PopulateQueries:  b.PopulateQueries.Load(),
		PopulateErrors:   b.PopulateErrors.Load(),
		SnapshotCount:    b.SnapshotCount.Load(),
		SnapshotErrors:   b.SnapshotErrors.Load(),
		SnapshotBytes:    b.SnapshotBytes.Load(),
		SnapshotAvgNanos: avg(b.SnapshotTotalNanos.Load(), b.SnapshotCount.Load()-b.SnapshotErrors.Load()),
	}
}

func avg(total, count int64) int64 {
	if count <= 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertRecords    int64
	InsertErrors     int64
	FindCount        int64
	FindErrors       int64
	FindAvgNanos     int64
	AggregateCount   int64
	AggregateErrors  int64
	UpdateCount      int64
	UpdateErrors     int64
	DestroyCount     int64
	DestroyErrors    int64
	PopulateCount    int64
	PopulateQueries  int64
	PopulateErrors   int64
	SnapshotCount    int64
	SnapshotErrors   int64
	SnapshotBytes    int64
	SnapshotAvgNanos int64
}
