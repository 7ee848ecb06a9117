// Package loader implements single-flight value loading: for any given
// key, the first caller to observe a miss invokes the supplied load
// function, and every concurrent caller for that key observes the same
// result, without the loader ever running twice. Both a blocking and a
// fire-and-forget entry point are provided so the cache can implement
// get-or-load (blocking) and refresh-after-write (fire-and-forget) on
// top of the same coordinator.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	corecacheerrors "github.com/nullforge/corecache/errors"
)

// Coordinator single-flights loads for key type K producing values of
// type V. The zero value is ready to use.
//
// Keys are mapped to singleflight's string key space via
// fmt.Sprintf("%+v"); this is safe for the key types the cache hashes
// (strings, integers, and fmt.Stringer values) because their %+v
// representation is injective in practice, but a custom comparable key
// type whose String/format method collides across distinct values would
// incorrectly coalesce their loads. Callers with such key types should
// normalize them to a string before use.
type Coordinator[K comparable, V any] struct {
	group singleflight.Group
}

// New returns a ready-to-use Coordinator.
func New[K comparable, V any]() *Coordinator[K, V] { return &Coordinator[K, V]{} }

// Load runs fn for key, coalescing concurrent callers. fn's result is
// shared with every caller that joined the same flight; a failed load is
// never cached, so the next call (even one that joined the same flight,
// once it has completed) re-attempts it. Panics inside fn are recovered
// and reported as a LoadError.
//
// If ctx is cancelled or its deadline expires before the in-flight load
// completes, Load returns promptly with ctx's error (or a TimeoutError
// for deadline expiry); the load itself continues running for the
// benefit of other waiters and to populate the cache on success.
func (c *Coordinator[K, V]) Load(ctx context.Context, key K, fn func(ctx context.Context) (V, error)) (V, error) {
	var zero V
	keyStr := keyFor(key)

	ch := c.group.DoChan(keyStr, func() (interface{}, error) {
		return c.invoke(ctx, key, fn)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, corecacheerrors.NewLoadTimeout(key, ctxDeadlineString(ctx))
		}
		return zero, ctx.Err()
	}
}

// Future is a handle to an in-flight or completed asynchronous load.
type Future[K comparable, V any] struct {
	key K
	ch  <-chan singleflight.Result
}

// LoadAsync starts (or joins) a load for key without blocking the
// caller, returning a Future the caller may wait on — or discard, for a
// pure fire-and-forget refresh where only the eventual cache population
// matters.
func (c *Coordinator[K, V]) LoadAsync(ctx context.Context, key K, fn func(ctx context.Context) (V, error)) Future[K, V] {
	ch := c.group.DoChan(keyFor(key), func() (interface{}, error) {
		return c.invoke(ctx, key, fn)
	})
	return Future[K, V]{key: key, ch: ch}
}

// Wait blocks until the load completes or ctx is done, whichever comes first.
func (f Future[K, V]) Wait(ctx context.Context) (V, error) {
	var zero V
	select {
	case res := <-f.ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, corecacheerrors.NewLoadTimeout(f.key, ctxDeadlineString(ctx))
		}
		return zero, ctx.Err()
	}
}

func (c *Coordinator[K, V]) invoke(ctx context.Context, key K, fn func(ctx context.Context) (V, error)) (val interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = corecacheerrors.NewLoadPanicked(key, r)
		}
	}()
	v, loadErr := fn(ctx)
	if loadErr != nil {
		return nil, corecacheerrors.NewLoadFailed(key, loadErr)
	}
	return v, nil
}

func keyFor[K comparable](key K) string {
	return fmt.Sprintf("%+v", key)
}

func ctxDeadlineString(ctx context.Context) string {
	if dl, ok := ctx.Deadline(); ok {
		return time.Until(dl).String()
	}
	return "unknown"
}
