package cache

import "github.com/agilira/go-timecache"

// systemTimeProvider is the default Clock: go-timecache maintains a
// background-refreshed nanosecond timestamp so every shard operation on
// the hot path reads a cached value instead of calling time.Now (a
// syscall on some platforms) directly.
type systemTimeProvider struct{}

func (systemTimeProvider) NowNanos() int64 { return timecache.CachedTimeNano() }
