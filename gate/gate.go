// Package gate bounds how many browser pages may be open at once.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting permit pool. It is safe for concurrent use.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64

	// notifyMu orders counter updates with onChange calls, so the last
	// observed value is always the current one.
	notifyMu sync.Mutex
	// onChange, if set, observes the in-flight count after every change.
	onChange func(inFlight int)
}

// Option configures a Gate.
type Option func(*Gate)

// WithObserver registers fn to be called with the in-flight count each
// time a permit is acquired or released.
func WithObserver(fn func(inFlight int)) Option {
	return func(g *Gate) { g.onChange = fn }
}

// New creates a gate admitting at most capacity holders; capacity < 1 is
// treated as 1.
func New(capacity int, opts ...Option) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	g := &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Permit is one acquired slot. Release returns it exactly once.
type Permit struct {
	gate *Gate
	once sync.Once
}

// Release returns the slot. Calls after the first are no-ops.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.gate.update(-1)
		p.gate.sem.Release(1)
	})
}

// Acquire blocks until a slot is free or ctx is done. Only the calling
// goroutine waits; waiters are not guaranteed FIFO order.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire page permit: %w", err)
	}
	g.update(1)
	return &Permit{gate: g}, nil
}

// Do runs fn while holding a permit. The permit is released on every exit
// path, panics included.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	permit, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer permit.Release()
	return fn(ctx)
}

// Drain waits, until ctx is done, for every outstanding permit to be
// returned, and keeps the gate closed afterwards. It reports whether all
// permits were collected. Used once at shutdown, before the browser closes.
func (g *Gate) Drain(ctx context.Context) bool {
	var held int64
	for held < g.capacity {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			slog.Warn("timed out waiting for active pages to finish before shutdown",
				"stillActive", g.capacity-held)
			return false
		}
		held++
	}
	return true
}

// InFlight returns the number of permits currently held by callers.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Capacity returns the configured limit.
func (g *Gate) Capacity() int {
	return int(g.capacity)
}

func (g *Gate) update(delta int64) {
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()
	n := g.inFlight.Add(delta)
	if g.onChange != nil {
		g.onChange(int(n))
	}
}
