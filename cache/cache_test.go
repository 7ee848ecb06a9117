package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) NowNanos() int64     { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += int64(d) }

// Uses a fake clock to avoid timing flakiness.
// Ensures that expireAfterWrite is respected.
func TestCache_ExpireAfterWrite_FakeClock(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	c, err := NewBuilder[string, string]().
		WithMaximumSize(4).
		WithExpireAfterWrite(100 * time.Millisecond).
		WithClock(clk).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.Put("x", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := c.Get("x"); !ok {
		t.Fatal("fresh miss")
	}
	clk.add(200 * time.Millisecond)
	if _, ok := c.Get("x"); ok {
		t.Fatal("expired hit")
	}
}

// Basic PutIfAbsent/Put/Get/Remove semantics.
// PutIfAbsent inserts only if key is absent; Put updates; Remove deletes.
func TestCache_BasicPutGetRemove(t *testing.T) {
	t.Parallel()

	c, err := NewBuilder[string, int]().WithMaximumSize(8).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if _, existed, err := c.PutIfAbsent("a", 1); err != nil || existed {
		t.Fatalf("PutIfAbsent a=1 must insert: existed=%v err=%v", existed, err)
	}
	if _, existed, err := c.PutIfAbsent("a", 2); err != nil || !existed {
		t.Fatalf("PutIfAbsent duplicate must report existed=true: existed=%v err=%v", existed, err)
	}

	if err := c.Put("a", 11); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if v, ok := c.Get("a"); !ok || v != 11 {
		t.Fatalf("Get a want 11, got %v ok=%v", v, ok)
	}

	if !c.Remove("a") {
		t.Fatal("Remove a must be true")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be absent after Remove")
	}
}

// Deterministic LRU eviction: single shard, small capacity.
// Accessing "a" promotes it; inserting "c" evicts LRU ("b").
func TestCache_EvictionLRU(t *testing.T) {
	t.Parallel()

	c, err := NewBuilder[string, int]().
		WithMaximumSize(2).
		WithConcurrencyLevel(1). // force a single shard so LRU is global
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	_ = c.Put("a", 1) // LRU = a
	_ = c.Put("b", 2) // MRU = b

	if _, ok := c.Get("a"); !ok { // promote a -> MRU
		t.Fatal("expect hit for a")
	}
	_ = c.Put("c", 3) // overflow -> evict LRU (b)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive (promoted)")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("c must be present")
	}
}

// Singleflight test: concurrent GetOrLoad calls for the same key
// should trigger the loader exactly once; subsequent calls are cache hits.
func TestCache_GetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c, err := NewBuilder[string, string]().
		WithMaximumSize(64).
		WithLoader(func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}

	if v, err := c.GetOrLoad(context.Background(), "k"); err != nil || v != "v:k" {
		t.Fatalf("second GetOrLoad failed: v=%q err=%v", v, err)
	}
}

// GetOrLoad surfaces a NoLoader error when no loader was configured.
func TestCache_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c, err := NewBuilder[string, string]().WithMaximumSize(4).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.GetOrLoad(context.Background(), "k"); err == nil {
		t.Fatal("expected NoLoader error")
	}
}

// A loader failure must not populate the cache.
func TestCache_GetOrLoad_FailureNotCached(t *testing.T) {
	t.Parallel()

	wantErr := fmt.Errorf("boom")
	c, err := NewBuilder[string, string]().
		WithMaximumSize(4).
		WithLoader(func(_ context.Context, k string) (string, error) {
			return "", wantErr
		}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.GetOrLoad(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("failed load must not populate cache")
	}
}

// Weight-based admission: a single entry heavier than the per-shard
// maximum weight is rejected with a CapacityError.
func TestCache_WeightRejection(t *testing.T) {
	t.Parallel()

	c, err := NewBuilder[string, string]().
		WithMaximumWeight(10).
		WithWeigher(StringWeigher).
		WithConcurrencyLevel(1).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.Put("huge", "0123456789012345"); err == nil {
		t.Fatal("expected capacity error for oversized entry")
	}
}

func TestBuilder_RejectsContradictoryBound(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder[string, string]().
		WithMaximumSize(4).
		WithRefreshAfterWrite(time.Second).
		Build()
	if err == nil {
		t.Fatal("expected ContradictoryBound error for refreshAfterWrite without a loader")
	}
}
