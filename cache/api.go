package cache

import (
	"context"
	"time"

	"github.com/nullforge/corecache/stats"
)

// Cache is the public contract spec.md §4.9 names CacheFacade. All
// methods are safe for concurrent use by multiple goroutines.
type Cache[K comparable, V any] interface {
	// Get returns the value for k and whether it was present. A hit
	// updates access time and frequency and may kick an asynchronous
	// refresh if refreshAfterWrite has elapsed.
	Get(k K) (V, bool)

	// GetOrLoad returns the value for k, loading it via the
	// Builder-configured loader on miss. Concurrent getOrLoad/refresh
	// calls for the same key are coalesced (single-flight). Fails with
	// a NoLoader error (classified by IsLoadError) if no loader was
	// configured.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// GetOrLoadWith behaves like GetOrLoad but uses the supplied loader
	// instead of (or in the absence of) a Builder-configured one.
	GetOrLoadWith(ctx context.Context, k K, loader func(ctx context.Context, k K) (V, error)) (V, error)

	// Put inserts or replaces k→v, evicting to satisfy size/weight
	// bounds. Fails with CapacityError if v's own weight exceeds the
	// maximum single-entry weight, leaving the cache unchanged.
	Put(k K, v V) error

	// PutIfAbsent inserts k→v only if k is not already present,
	// returning the existing value if it was.
	PutIfAbsent(k K, v V) (previous V, existed bool, err error)

	// Replace updates k's value unconditionally if k is present.
	Replace(k K, v V) (previous V, existed bool, err error)

	// ReplaceIfEqual swaps k's value to newV only if its current value
	// deep-equals oldV (compare-and-swap).
	ReplaceIfEqual(k K, oldV, newV V) (swapped bool, err error)

	// Remove deletes k if present.
	Remove(k K) bool

	// RemoveIfEqual deletes k only if its current value deep-equals v.
	RemoveIfEqual(k K, v V) bool

	// InvalidateAll removes the given keys, or every resident entry if
	// no keys are given. Best-effort: a concurrent put may observe a
	// race with this operation for an individual key.
	InvalidateAll(keys ...K)

	// GetAll returns the subset of keys currently present, without
	// triggering loads for the rest.
	GetAll(keys []K) map[K]V

	// PutAll inserts every entry in m, continuing past individual
	// failures. If any entry could not be admitted, returns an
	// aggregate PutAllPartial CapacityError naming the rejected keys;
	// every other entry still lands.
	PutAll(m map[K]V) error

	// Size returns the total number of resident entries across all shards.
	Size() int

	// Weight returns the aggregate weight of resident entries across
	// all shards (equal to Size() when no Weigher is configured).
	Weight() int64

	// Stats returns a snapshot of the StatisticsRecorder's counters.
	// Recording is a no-op (snapshot stays zero) unless recordStats was
	// requested at Build time.
	Stats() stats.Snapshot

	// CleanUp forces an eager expiration sweep and refresh-kick pass
	// instead of waiting for the shared Scheduler's next tick.
	CleanUp()

	// Close cancels this cache's scheduled tasks and marks it closed.
	// Already-resident entries are left in place. Afterwards Put,
	// PutIfAbsent, Replace, ReplaceIfEqual, PutAll and GetOrLoad(With)
	// fail with a Closed OperationError; Get and GetAll report misses,
	// Remove and RemoveIfEqual return false, and InvalidateAll does
	// nothing.
	Close() error
}

// TTLs is the subset of Builder options safe to retune on a running
// cache: maximumSize/maximumWeight/shards/policy are fixed for the life
// of a cache (changing them would require tearing down the ShardedMap
// and policy state), but the three durations below are read atomically
// on every lazy expiration/refresh check, so they can be swapped live.
type TTLs struct {
	ExpireAfterWrite  time.Duration
	ExpireAfterAccess time.Duration
	RefreshAfterWrite time.Duration
}

// HotReloadable is the narrow seam the configwatch package's Reloader
// uses to retune a running cache's TTLs without reaching into its
// internals. Every Cache built by Builder implements it.
type HotReloadable interface {
	TTLs() TTLs
	SetTTLs(TTLs)
}
