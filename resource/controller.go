// Package resource bounds the concurrency and write throughput of a datastore.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultWorkers is the number of concurrent populate workers used when
// Config.MaxWorkers is zero.
const DefaultWorkers = 8

// Config holds resource limits.
type Config struct {
	// MaxWorkers is the maximum number of concurrent association lookups.
	// If 0, defaults to DefaultWorkers.
	MaxWorkers int64

	// IOLimitBytesPerSec is the maximum snapshot write throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller hands out worker slots and IO budget. A nil *Controller is
// valid and imposes no limits.
type Controller struct {
	cfg Config

	workers *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultWorkers
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Workers returns the worker limit.
func (c *Controller) Workers() int {
	if c == nil {
		return DefaultWorkers
	}
	return int(c.cfg.MaxWorkers)
}

// AcquireWorker reserves a worker slot. Blocks if all slots are busy.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the limiter burst are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
