// Package cache provides a concurrent, sharded in-process key/value
// cache with pluggable eviction (LRU, LFU, FIFO, LIFO, Window-TinyLFU),
// per-key TTL and refresh-after-write, weight-based admission, and
// single-flight loading.
//
// Design
//
//   - Concurrency: the cache is split into shards, each protected by its
//     own mutex. The shard count defaults to a heuristic
//     (util.ReasonableShardCount) rounded up to a power of two;
//     concurrencyLevel overrides it. Operations within a shard serialize;
//     shards never block each other.
//
//   - Storage: each shard keeps a map[K]*node for lookups and an
//     intrusive doubly linked list its policy instance manipulates
//     through policy.Hooks. All operations are amortized O(1).
//
//   - Policies: eviction is pluggable via the policy package and
//     selected with Builder.WithEvictionPolicy. LRU is the default;
//     Window-TinyLFU additionally consults a shared Count-Min
//     FrequencySketch (package sketch) during admission.
//
//   - Expiration & refresh: expireAfterWrite/expireAfterAccess are
//     checked lazily on every read and eagerly by a task registered on
//     the shared scheduler.Scheduler. refreshAfterWrite serves the
//     current value while kicking an asynchronous reload, single-
//     flighted per key through package loader.
//
//   - Loading: GetOrLoad coalesces concurrent loads for the same key.
//     Loader failures are never cached; they are reported to
//     StatisticsRecorder and EventDispatcher and surfaced to every
//     waiter.
//
//   - Observability: Builder.WithRecordStats enables atomic hit/miss/
//     load/eviction counters (package stats); Builder.WithListener
//     attaches put/remove/evict/expire/load callbacks (package events).
//
// Basic usage
//
//	c, err := cache.NewBuilder[string, []byte]().
//		WithMaximumSize(10_000).
//		Build()
//	if err != nil {
//		// ConfigurationError
//	}
//	_ = c.Put("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//		_ = v
//	}
//	c.Remove("a")
//
// With TTL
//
//	c, _ := cache.NewBuilder[string, string]().
//		WithMaximumSize(1024).
//		WithExpireAfterWrite(200 * time.Millisecond).
//		Build()
//	_ = c.Put("tmp", "v")
//	time.Sleep(300 * time.Millisecond)
//	_, ok := c.Get("tmp") // ok == false (expired)
//
// With GetOrLoad (single-flight)
//
//	c, _ := cache.NewBuilder[string, string]().
//		WithMaximumSize(1024).
//		WithLoader(func(ctx context.Context, k string) (string, error) {
//			return "v:" + k, nil
//		}).
//		Build()
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Using an alternative policy (Window-TinyLFU)
//
//	c, _ := cache.NewBuilder[string, string]().
//		WithMaximumSize(50_000).
//		WithEvictionPolicy(cache.WTinyLFU).
//		WithFrequencySketch(sketch.Optimized).
//		Build()
//
// See builder.go for every recognized option and package policy for the
// Policy/Hooks interfaces used to implement custom eviction strategies.
//
// A running cache's TTLs (but not its size/weight bounds or policy,
// which are fixed at Build time) can be retuned from a watched config
// file via the configwatch package, through the HotReloadable seam this
// package exposes.
package cache
