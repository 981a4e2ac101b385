package application

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Coordinator admits a bounded number of network operations at a time.
// It implements service.Admitter and is shared by the prober and the evaluator.
type Coordinator struct {
	sem      *semaphore.Weighted
	limit    int64
	inFlight atomic.Int64
	peak     atomic.Int64
	admitted atomic.Int64
}

// NewCoordinator creates a coordinator admitting at most limit operations
func NewCoordinator(limit int) *Coordinator {
	if limit < 1 {
		limit = 1
	}
	return &Coordinator{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// Do runs fn once a slot is free. It returns ctx.Err() without running fn
// if ctx is done first.
func (c *Coordinator) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	c.admitted.Add(1)

	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	return fn(ctx)
}

// Limit returns the admission limit
func (c *Coordinator) Limit() int {
	return int(c.limit)
}

// InFlight returns the number of operations currently running
func (c *Coordinator) InFlight() int64 {
	return c.inFlight.Load()
}

// Peak returns the highest number of operations ever running at once
func (c *Coordinator) Peak() int64 {
	return c.peak.Load()
}

// Admitted returns the number of operations admitted so far
func (c *Coordinator) Admitted() int64 {
	return c.admitted.Load()
}
