package loader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	corecacheerrors "github.com/nullforge/corecache/errors"
)

func TestLoadReturnsValueOnSuccess(t *testing.T) {
	c := New[string, int]()
	v, err := c.Load(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", v, err)
	}
}

func TestLoadFailureIsNotCached(t *testing.T) {
	c := New[string, int]()
	var calls int64

	_, err := c.Load(context.Background(), "k", func(ctx context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected a failure")
	}
	if !corecacheerrors.IsLoadError(err) {
		t.Fatalf("expected a load error, got %v", err)
	}

	v, err := c.Load(context.Background(), "k", func(ctx context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("second call should re-attempt the load, got (%d, %v)", v, err)
	}
	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Fatalf("expected exactly 2 calls (no caching of the failure in between), got %d", got)
	}
}

func TestConcurrentCallersCoalesceIntoOneLoad(t *testing.T) {
	c := New[string, int]()
	var calls int64
	release := make(chan struct{})

	const n = 100
	results := make(chan int, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		go func() {
			v, err := c.Load(context.Background(), "shared", func(ctx context.Context) (int, error) {
				atomic.AddInt64(&calls, 1)
				<-release
				return 99, nil
			})
			results <- v
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)

	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v := <-results; v != 99 {
			t.Fatalf("expected every caller to observe 99, got %d", v)
		}
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("expected exactly 1 underlying load for 100 concurrent callers, got %d", got)
	}
}

func TestLoadRecoversPanic(t *testing.T) {
	c := New[string, int]()
	_, err := c.Load(context.Background(), "k", func(ctx context.Context) (int, error) {
		panic("loader exploded")
	})
	if err == nil {
		t.Fatal("expected the recovered panic surfaced as an error")
	}
	if !corecacheerrors.IsLoadError(err) {
		t.Fatalf("expected a load error for the recovered panic, got %v", err)
	}
}

func TestLoadAbortsOnContextDeadlineButLoadContinues(t *testing.T) {
	c := New[string, int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	start := time.Now()
	_, err := c.Load(ctx, "slow", func(ctx context.Context) (int, error) {
		time.Sleep(60 * time.Millisecond)
		close(done)
		return 1, nil
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !corecacheerrors.IsTimeoutError(err) {
		t.Fatalf("expected a timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("Load should have returned promptly on deadline, took %v", elapsed)
	}
	<-done // the in-flight load must still complete in the background
}

func TestLoadAsyncFutureCanBeAwaitedLater(t *testing.T) {
	c := New[string, int]()
	f := c.LoadAsync(context.Background(), "k", func(ctx context.Context) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 5, nil
	})
	v, err := f.Wait(context.Background())
	if err != nil || v != 5 {
		t.Fatalf("got (%d, %v), want (5, nil)", v, err)
	}
}

func TestLoadAsyncFireAndForgetDoesNotBlockCaller(t *testing.T) {
	c := New[string, int]()
	start := time.Now()
	_ = c.LoadAsync(context.Background(), "k", func(ctx context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("LoadAsync must not block the caller, took %v", elapsed)
	}
}
