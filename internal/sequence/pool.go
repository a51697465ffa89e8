package sequence

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Default pool sizes.
const (
	DefaultWorkers  = 4
	DefaultCapacity = 128
)

// Pool is a bounded worker pool shared by all frame fetches. At most workers
// tasks run at once and at most capacity tasks are admitted, running or
// waiting. Submissions beyond capacity are rejected with ErrPoolSaturated.
type Pool struct {
	admit    *semaphore.Weighted
	run      *semaphore.Weighted
	inFlight atomic.Int64
	observe  func(n int64)
}

// NewPool returns a Pool. Non-positive sizes use the defaults and capacity is
// raised to workers if it is smaller.
func NewPool(workers, capacity int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity < workers {
		capacity = workers
	}
	return &Pool{
		admit: semaphore.NewWeighted(int64(capacity)),
		run:   semaphore.NewWeighted(int64(workers)),
	}
}

// OnInFlight registers fn to be called with the number of admitted tasks
// whenever it changes. It must be called before the first Submit.
func (p *Pool) OnInFlight(fn func(n int64)) {
	p.observe = fn
}

// Submit admits task for execution without blocking. The task is dropped
// without running if ctx is cancelled before a worker becomes free.
func (p *Pool) Submit(ctx context.Context, task func(ctx context.Context)) error {
	if !p.admit.TryAcquire(1) {
		return ErrPoolSaturated
	}
	p.track(1)
	go func() {
		defer func() {
			p.track(-1)
			p.admit.Release(1)
		}()
		if err := p.run.Acquire(ctx, 1); err != nil {
			return
		}
		defer p.run.Release(1)
		if ctx.Err() != nil {
			return
		}
		task(ctx)
	}()
	return nil
}

// InFlight returns the number of admitted tasks that have not finished.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

func (p *Pool) track(delta int64) {
	n := p.inFlight.Add(delta)
	if p.observe != nil {
		p.observe(n)
	}
}
