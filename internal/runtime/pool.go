package runtime

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// CallPool bounds how many Calls sharing a StateContext may run
// concurrently (spec.md 5: "multiple Calls may run in parallel on
// different threads"), via a counting semaphore rather than an unbounded
// goroutine-per-Call fan-out.
type CallPool struct {
	sem *semaphore.Weighted
}

// NewCallPool builds a pool admitting at most maxConcurrent Calls to run at
// once; maxConcurrent <= 0 means unbounded.
func NewCallPool(maxConcurrent int64) *CallPool {
	if maxConcurrent <= 0 {
		return &CallPool{}
	}
	return &CallPool{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Run drives one call to completion (ignoring any pause it returns; a
// pooled run is expected to go to completion in one shot) under the pool's
// concurrency limit.
func (p *CallPool) Run(ctx context.Context, call *Call) (*Outcome, error) {
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer p.sem.Release(1)
	}
	return call.Resume(call.Continuation())
}

// RunAll runs a batch of independent top-level calls concurrently under the
// pool's limit, stopping at the first error (errgroup's standard
// fail-fast behavior) and returning every call's Outcome in the same order
// as calls on success.
func RunAll(ctx context.Context, pool *CallPool, calls []*Call) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			outcome, err := pool.Run(gctx, call)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
