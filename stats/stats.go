// Package stats implements the cache's atomic statistics counters and the
// derived rates computed from them.
package stats

import "github.com/nullforge/corecache/internal/util"

// Recorder accumulates cache statistics with atomic counters. Recording
// is opt-in: a Recorder obtained via Disabled() silently discards every
// call, so a cache can always hold a non-nil *Recorder regardless
// of whether recordStats was requested.
type Recorder struct {
	enabled bool

	hits             util.PaddedAtomicInt64
	misses           util.PaddedAtomicInt64
	loadSuccesses    util.PaddedAtomicInt64
	loadFailures     util.PaddedAtomicInt64
	totalLoadNanos   util.PaddedAtomicInt64
	evictions        util.PaddedAtomicInt64
	evictionWeight   util.PaddedAtomicInt64
}

// New returns a Recorder that accumulates every call.
func New() *Recorder { return &Recorder{enabled: true} }

// Disabled returns a Recorder whose methods are all no-ops; used when
// recordStats was not requested so callers never need a nil check.
func Disabled() *Recorder { return &Recorder{enabled: false} }

// RecordHit records a cache hit.
func (r *Recorder) RecordHit() {
	if r.enabled {
		r.hits.Add(1)
	}
}

// RecordMiss records a cache miss.
func (r *Recorder) RecordMiss() {
	if r.enabled {
		r.misses.Add(1)
	}
}

// RecordLoadSuccess records a successful load and its duration in nanoseconds.
func (r *Recorder) RecordLoadSuccess(durationNanos int64) {
	if !r.enabled {
		return
	}
	r.loadSuccesses.Add(1)
	r.totalLoadNanos.Add(durationNanos)
}

// RecordLoadFailure records a failed load and the time spent attempting it.
func (r *Recorder) RecordLoadFailure(durationNanos int64) {
	if !r.enabled {
		return
	}
	r.loadFailures.Add(1)
	r.totalLoadNanos.Add(durationNanos)
}

// RecordEviction records an eviction and the weight it freed.
func (r *Recorder) RecordEviction(weight int64) {
	if !r.enabled {
		return
	}
	r.evictions.Add(1)
	r.evictionWeight.Add(weight)
}

// Snapshot is a point-in-time read of every counter. Each field is read
// atomically and independently, so the snapshot is consistent per-field
// but not necessarily as a whole under concurrent mutation (documented
// in spec.md §4.6).
type Snapshot struct {
	HitCount           int64
	MissCount          int64
	LoadSuccessCount   int64
	LoadFailureCount   int64
	TotalLoadTimeNanos int64
	EvictionCount      int64
	EvictionWeight     int64
}

// RequestCount returns HitCount + MissCount.
func (s Snapshot) RequestCount() int64 { return s.HitCount + s.MissCount }

// HitRate returns HitCount / RequestCount, or 1.0 when there have been no requests.
func (s Snapshot) HitRate() float64 {
	total := s.RequestCount()
	if total == 0 {
		return 1.0
	}
	return float64(s.HitCount) / float64(total)
}

// MissRate returns MissCount / RequestCount, or 0.0 when there have been no requests.
func (s Snapshot) MissRate() float64 {
	total := s.RequestCount()
	if total == 0 {
		return 0.0
	}
	return float64(s.MissCount) / float64(total)
}

// LoadFailureRate returns LoadFailureCount / (LoadSuccessCount + LoadFailureCount).
func (s Snapshot) LoadFailureRate() float64 {
	total := s.LoadSuccessCount + s.LoadFailureCount
	if total == 0 {
		return 0.0
	}
	return float64(s.LoadFailureCount) / float64(total)
}

// AverageLoadPenalty returns TotalLoadTimeNanos / (LoadSuccessCount + LoadFailureCount).
func (s Snapshot) AverageLoadPenalty() float64 {
	total := s.LoadSuccessCount + s.LoadFailureCount
	if total == 0 {
		return 0.0
	}
	return float64(s.TotalLoadTimeNanos) / float64(total)
}

// Snapshot reads every counter into a Snapshot.
func (r *Recorder) Snapshot() Snapshot {
	return Snapshot{
		HitCount:           r.hits.Load(),
		MissCount:          r.misses.Load(),
		LoadSuccessCount:   r.loadSuccesses.Load(),
		LoadFailureCount:   r.loadFailures.Load(),
		TotalLoadTimeNanos: r.totalLoadNanos.Load(),
		EvictionCount:      r.evictions.Load(),
		EvictionWeight:     r.evictionWeight.Load(),
	}
}
