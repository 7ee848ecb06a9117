package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nullforge/corecache/policy"
)

// Weigher computes an entry's weight at insertion time. The result is
// attached to the entry once and is not recomputed on access; a put that
// replaces an existing value recomputes it.
type Weigher[V any] func(v V) int64

// Clock abstracts the time source so expiration and refresh math is
// testable without sleeping. A Builder without WithClock uses
// systemTimeProvider.
type Clock interface{ NowNanos() int64 }

// Logger is the cache's injectable structured-logging seam. The facade
// never logs through anything else; it defaults to NoOpLogger so the
// library never forces a logging backend on an embedder.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

// NoOpLogger discards every call.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{})  {}
func (NoOpLogger) Warn(string, ...interface{})  {}
func (NoOpLogger) Error(string, ...interface{}) {}

// config is the fully validated, normalized configuration a Builder
// produces. After Build returns only the three TTLs can change (via
// setTTLs); every other field stays fixed.
type config[K comparable, V any] struct {
	maximumSize   int64
	maximumWeight int64
	weigher       Weigher[V]

	// TTLs are stored as atomic nanosecond counts rather than plain
	// time.Duration fields so a configwatch.Reloader (via HotReloadable)
	// can retune them on a running cache without disturbing in-flight
	// reads/writes.
	expireAfterWrite  atomic.Int64
	expireAfterAccess atomic.Int64
	refreshAfterWrite atomic.Int64

	policyFactory policy.Policy[K, V]

	shards          int
	perShardSize    int64
	perShardWeight  int64
	initialCapacity int
	softValues      bool
	recordStats     bool

	loader      func(ctx context.Context, k K) (V, error)
	asyncLoader bool

	clock  Clock
	logger Logger
}

// ExpireAfterWrite returns the current write-TTL. Zero means disabled.
func (c *config[K, V]) ExpireAfterWrite() time.Duration {
	return time.Duration(c.expireAfterWrite.Load())
}

// ExpireAfterAccess returns the current access-TTL. Zero means disabled.
func (c *config[K, V]) ExpireAfterAccess() time.Duration {
	return time.Duration(c.expireAfterAccess.Load())
}

// RefreshAfterWrite returns the current refresh-after-write window. Zero
// means refresh is disabled; it is not the same as expiry.
func (c *config[K, V]) RefreshAfterWrite() time.Duration {
	return time.Duration(c.refreshAfterWrite.Load())
}

// setTTLs atomically retunes the three durations. Called only through
// cacheImpl.SetTTLs (the HotReloadable seam); maximumSize/maximumWeight/
// shards are fixed for the life of the cache and have no setter.
func (c *config[K, V]) setTTLs(writeTTL, accessTTL, refreshTTL time.Duration) {
	if writeTTL >= 0 {
		c.expireAfterWrite.Store(int64(writeTTL))
	}
	if accessTTL >= 0 {
		c.expireAfterAccess.Store(int64(accessTTL))
	}
	if refreshTTL >= 0 {
		c.refreshAfterWrite.Store(int64(refreshTTL))
	}
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
