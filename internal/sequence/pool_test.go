package sequence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_bounds_concurrency(t *testing.T) {
	p := NewPool(2, 10)
	var running, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func(context.Context) {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	wg.Wait()
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency %d exceeds 2 workers", got)
	}
}

func TestPool_rejects_when_saturated(t *testing.T) {
	p := NewPool(1, 2)
	release := make(chan struct{})
	defer close(release)
	block := func(context.Context) { <-release }

	for i := 0; i < 2; i++ {
		if err := p.Submit(context.Background(), block); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if err := p.Submit(context.Background(), block); err != ErrPoolSaturated {
		t.Errorf("expected ErrPoolSaturated, got %v", err)
	}
	if got := p.InFlight(); got != 2 {
		t.Errorf("expected 2 in flight, got %d", got)
	}
}

func TestPool_cancelled_before_start_does_not_run(t *testing.T) {
	p := NewPool(1, 4)
	release := make(chan struct{})
	started := make(chan struct{})
	p.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	if err := p.Submit(ctx, func(context.Context) { ran.Store(true) }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for p.InFlight() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("tasks did not drain")
		}
		time.Sleep(time.Millisecond)
	}
	if ran.Load() {
		t.Error("cancelled task ran")
	}
}

func TestPool_OnInFlight(t *testing.T) {
	p := NewPool(1, 1)
	var mu sync.Mutex
	var seen []int64
	p.OnInFlight(func(n int64) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	})
	done := make(chan struct{})
	p.Submit(context.Background(), func(context.Context) { close(done) })
	<-done

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 0 {
		t.Errorf("unexpected in-flight observations %v", seen)
	}
}
