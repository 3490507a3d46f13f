package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_NPlusOneCallerWaits(t *testing.T) {
	const limit = 3
	g := New(limit)
	ctx := context.Background()

	permits := make([]*Permit, 0, limit)
	for i := 0; i < limit; i++ {
		p, err := g.Acquire(ctx)
		require.NoError(t, err)
		permits = append(permits, p)
	}
	assert.Equal(t, limit, g.InFlight())

	acquired := make(chan *Permit)
	go func() {
		p, err := g.Acquire(ctx)
		if err == nil {
			acquired <- p
		}
	}()

	select {
	case <-acquired:
		t.Fatal("caller N+1 acquired a permit while the gate was full")
	case <-time.After(50 * time.Millisecond):
	}

	permits[0].Release()

	select {
	case p := <-acquired:
		assert.Equal(t, limit, g.InFlight())
		p.Release()
	case <-time.After(time.Second):
		t.Fatal("caller N+1 was not admitted after a release")
	}

	for _, p := range permits[1:] {
		p.Release()
	}
	assert.Equal(t, 0, g.InFlight())
}

func TestGate_NeverExceedsCapacity(t *testing.T) {
	const limit = 4
	var current, peak atomic.Int64
	g := New(limit)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				current.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(limit))
	assert.Equal(t, 0, g.InFlight())
}

func TestPermit_ReleaseIsExactlyOnce(t *testing.T) {
	g := New(1)
	p, err := g.Acquire(context.Background())
	require.NoError(t, err)

	p.Release()
	p.Release()
	assert.Equal(t, 0, g.InFlight())

	// A double release must not have freed a second slot.
	p1, err := g.Acquire(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	p1.Release()
}

func TestGate_DoReleasesOnEveryExitPath(t *testing.T) {
	g := New(1)
	boom := errors.New("boom")

	require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, 0, g.InFlight())

	require.ErrorIs(t, g.Do(context.Background(), func(context.Context) error { return boom }), boom)
	assert.Equal(t, 0, g.InFlight())

	assert.Panics(t, func() {
		_ = g.Do(context.Background(), func(context.Context) error { panic("extract") })
	})
	assert.Equal(t, 0, g.InFlight())
}

func TestGate_AcquireHonoursCancellation(t *testing.T) {
	g := New(1)
	p, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, g.InFlight())
}

func TestGate_Observer(t *testing.T) {
	var seen []int
	var mu sync.Mutex
	g := New(2, WithObserver(func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	}))

	require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, seen)
}

func TestGate_ObserverSettlesAtZero(t *testing.T) {
	const capacity = 8
	for round := 0; round < 50; round++ {
		var last atomic.Int64
		last.Store(-1)
		g := New(capacity, WithObserver(func(n int) {
			assert.GreaterOrEqual(t, n, 0)
			assert.LessOrEqual(t, n, capacity)
			last.Store(int64(n))
		}))

		var wg sync.WaitGroup
		for i := 0; i < capacity; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					p, err := g.Acquire(context.Background())
					if !assert.NoError(t, err) {
						return
					}
					p.Release()
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, 0, last.Load(), "round %d", round)
		require.Equal(t, 0, g.InFlight())
	}
}

func TestGate_Drain(t *testing.T) {
	g := New(2)
	p, err := g.Acquire(context.Background())
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, g.Drain(ctx))
}

func TestGate_DrainTimesOut(t *testing.T) {
	g := New(2)
	p, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, g.Drain(ctx))
}

func TestNew_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, New(0).Capacity())
	assert.Equal(t, 4, New(4).Capacity())
}
