package cache

import (
	"context"
	"math/bits"
	"sync/atomic"
	"time"

	corecacheerrors "github.com/nullforge/corecache/errors"
	"github.com/nullforge/corecache/events"
	"github.com/nullforge/corecache/internal/util"
	"github.com/nullforge/corecache/loader"
	"github.com/nullforge/corecache/scheduler"
	"github.com/nullforge/corecache/stats"
)

// cacheImpl is the sharded in-memory store orchestrating C1 (via the
// shared FrequencySketch embedded in a policy factory), C3 ShardedMap,
// C5 ExpirationEngine (lazy checks inline, eager sweeps scheduled), C6
// LoaderCoordinator, C7 StatisticsRecorder, and C8 EventDispatcher
// behind the C10 CacheFacade contract.
type cacheImpl[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	cfg    *config[K, V]

	events *events.Dispatcher[K, V]
	stats  *stats.Recorder
	loader *loader.Coordinator[K, V]

	closed      atomic.Bool
	cancelSweep scheduler.Cancel
}

func newCacheImpl[K comparable, V any](cfg *config[K, V], disp *events.Dispatcher[K, V]) *cacheImpl[K, V] {
	st := stats.Disabled()
	if cfg.recordStats {
		st = stats.New()
	}

	hash := util.Fnv64a[K]
	shards := make([]*shard[K, V], cfg.shards)
	for i := range shards {
		shards[i] = newShard[K, V](cfg.perShardSize, cfg.perShardWeight, cfg.policyFactory, cfg, st, disp, hash)
	}

	c := &cacheImpl[K, V]{
		shards: shards,
		hash:   hash,
		cfg:    cfg,
		events: disp,
		stats:  st,
		loader: loader.New[K, V](),
	}

	if interval := c.sweepInterval(); interval > 0 {
		c.cancelSweep = scheduler.Shared().Register(interval, func(ctx context.Context) {
			c.CleanUp()
		})
	}
	return c
}

func (c *cacheImpl[K, V]) sweepInterval() time.Duration {
	var min time.Duration
	for _, d := range [...]time.Duration{c.cfg.ExpireAfterWrite(), c.cfg.ExpireAfterAccess(), c.cfg.RefreshAfterWrite()} {
		if d <= 0 {
			continue
		}
		if min == 0 || d < min {
			min = d
		}
	}
	if min == 0 {
		return 0
	}
	interval := min / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	if interval > 5*time.Second {
		interval = 5 * time.Second
	}
	return interval
}

func (c *cacheImpl[K, V]) getShard(k K) *shard[K, V] {
	h := c.hash(k)
	// Route by the top log2(len(shards)) bits of the hash. With a single
	// shard the shift is 64, which yields 0 for a uint64.
	return c.shards[h>>(64-bits.TrailingZeros64(uint64(len(c.shards))))]
}

func (c *cacheImpl[K, V]) Get(k K) (V, bool) {
	var zero V
	if c.closed.Load() {
		return zero, false
	}
	now := c.cfg.clock.NowNanos()
	v, ok, refreshDue := c.getShard(k).Get(k, now)
	if ok && refreshDue && c.cfg.loader != nil {
		c.kickRefresh(k)
	}
	return v, ok
}

func (c *cacheImpl[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	return c.GetOrLoadWith(ctx, k, c.cfg.loader)
}

func (c *cacheImpl[K, V]) GetOrLoadWith(ctx context.Context, k K, ld func(ctx context.Context, k K) (V, error)) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, corecacheerrors.NewClosed("getOrLoad")
	}
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if ld == nil {
		return zero, corecacheerrors.NewNoLoader(k)
	}

	start := c.cfg.clock.NowNanos()
	v, err := c.loader.Load(ctx, k, func(ctx context.Context) (V, error) {
		// Double-check inside the flight: another caller may have
		// populated the entry between our first Get and this load.
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		return ld(ctx, k)
	})
	dur := time.Duration(c.cfg.clock.NowNanos() - start)
	if err != nil {
		c.stats.RecordLoadFailure(int64(dur))
		c.events.DispatchLoadFailure(k, err)
		return zero, err
	}
	c.stats.RecordLoadSuccess(int64(dur))
	c.events.DispatchLoad(k, v, dur)

	if _, _, putErr := c.getShard(k).Put(k, v, c.cfg.clock.NowNanos()); putErr != nil {
		return v, putErr
	}
	return v, nil
}

// kickRefresh starts (or joins) a background reload for k and, on
// success, writes the result back via Put — which resets writeNanos, so
// a freshly loaded refresh restarts the expireAfterWrite/refreshAfterWrite
// clocks exactly as spec.md §4.4 requires.
func (c *cacheImpl[K, V]) kickRefresh(k K) {
	start := c.cfg.clock.NowNanos()
	future := c.loader.LoadAsync(context.Background(), k, func(ctx context.Context) (V, error) {
		return c.cfg.loader(ctx, k)
	})
	go func() {
		v, err := future.Wait(context.Background())
		dur := time.Duration(c.cfg.clock.NowNanos() - start)
		if err != nil {
			c.stats.RecordLoadFailure(int64(dur))
			c.events.DispatchLoadFailure(k, err)
			return
		}
		c.stats.RecordLoadSuccess(int64(dur))
		c.events.DispatchLoad(k, v, dur)
		_, _, _ = c.getShard(k).Put(k, v, c.cfg.clock.NowNanos())
	}()
}

func (c *cacheImpl[K, V]) Put(k K, v V) error {
	if c.closed.Load() {
		return corecacheerrors.NewClosed("put")
	}
	_, _, err := c.getShard(k).Put(k, v, c.cfg.clock.NowNanos())
	return err
}

func (c *cacheImpl[K, V]) PutIfAbsent(k K, v V) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, corecacheerrors.NewClosed("putIfAbsent")
	}
	return c.getShard(k).PutIfAbsent(k, v, c.cfg.clock.NowNanos())
}

func (c *cacheImpl[K, V]) Replace(k K, v V) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, corecacheerrors.NewClosed("replace")
	}
	return c.getShard(k).Replace(k, v, c.cfg.clock.NowNanos())
}

func (c *cacheImpl[K, V]) ReplaceIfEqual(k K, oldV, newV V) (bool, error) {
	if c.closed.Load() {
		return false, corecacheerrors.NewClosed("replaceIfEqual")
	}
	return c.getShard(k).ReplaceIfEqual(k, oldV, newV, c.cfg.clock.NowNanos())
}

func (c *cacheImpl[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	_, existed := c.getShard(k).Remove(k)
	return existed
}

func (c *cacheImpl[K, V]) RemoveIfEqual(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).RemoveIfEqual(k, v)
}

func (c *cacheImpl[K, V]) InvalidateAll(keys ...K) {
	if c.closed.Load() {
		return
	}
	if len(keys) == 0 {
		for _, s := range c.shards {
			s.Clear()
		}
		return
	}
	for _, k := range keys {
		c.getShard(k).Remove(k)
	}
}

func (c *cacheImpl[K, V]) GetAll(keys []K) map[K]V {
	out := make(map[K]V, len(keys))
	if c.closed.Load() {
		return out
	}
	for _, k := range keys {
		if v, ok := c.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

func (c *cacheImpl[K, V]) PutAll(m map[K]V) error {
	if c.closed.Load() {
		return corecacheerrors.NewClosed("putAll")
	}
	var rejected []interface{}
	for k, v := range m {
		if err := c.Put(k, v); err != nil {
			rejected = append(rejected, k)
		}
	}
	if len(rejected) > 0 {
		return corecacheerrors.NewPutAllPartial(rejected)
	}
	return nil
}

func (c *cacheImpl[K, V]) Size() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

func (c *cacheImpl[K, V]) Weight() int64 {
	var total int64
	for _, s := range c.shards {
		total += s.Weight()
	}
	return total
}

func (c *cacheImpl[K, V]) Stats() stats.Snapshot { return c.stats.Snapshot() }

func (c *cacheImpl[K, V]) CleanUp() {
	now := c.cfg.clock.NowNanos()
	for _, s := range c.shards {
		s.SweepExpired(now)
	}
	if c.cfg.loader == nil || c.cfg.RefreshAfterWrite() <= 0 {
		return
	}
	for _, s := range c.shards {
		for _, k := range s.DueForRefresh(now) {
			c.kickRefresh(k)
		}
	}
}

// TTLs returns the cache's current write/access/refresh durations, for a
// configwatch.Reloader to snapshot before deciding what changed.
func (c *cacheImpl[K, V]) TTLs() TTLs {
	return TTLs{
		ExpireAfterWrite:  c.cfg.ExpireAfterWrite(),
		ExpireAfterAccess: c.cfg.ExpireAfterAccess(),
		RefreshAfterWrite: c.cfg.RefreshAfterWrite(),
	}
}

// SetTTLs atomically retunes the cache's durations. Safe to call
// concurrently with any other operation; in-flight expiration/refresh
// checks observe either the old or the new values, never a torn mix of
// the three.
func (c *cacheImpl[K, V]) SetTTLs(t TTLs) {
	c.cfg.setTTLs(t.ExpireAfterWrite, t.ExpireAfterAccess, t.RefreshAfterWrite)
}

func (c *cacheImpl[K, V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.cancelSweep != nil {
		c.cancelSweep()
	}
	return nil
}
