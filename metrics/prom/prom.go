// Package prom adapts the cache's StatisticsRecorder and EventDispatcher
// to Prometheus, mirroring the pattern the teacher library used for its
// own Metrics interface: one small adapter type, constructed with a
// namespace/subsystem/constLabels triple and registered against a
// prometheus.Registerer.
package prom

import (
	"github.com/nullforge/corecache/events"
	"github.com/nullforge/corecache/stats"
	"github.com/prometheus/client_golang/prometheus"
)

// Snapshotter is the subset of cache.Cache[K, V] the adapter needs.
// Declared without type parameters so one Adapter works for any
// cache.Cache instantiation.
type Snapshotter interface {
	Stats() stats.Snapshot
	Size() int
	Weight() int64
}

// Adapter is a prometheus.Collector that reports a cache's statistics at
// scrape time. Unlike a push-based adapter it holds no gauges of its
// own state — every Collect call reads the cache's StatisticsRecorder
// fresh, so scrapes never race a background poller.
//
// Adapter must be constructed before the cache.Builder.WithListener
// hookup (Listeners needs it) but the cache itself does not exist until
// Build returns, so target starts nil and is attached afterward with
// Attach.
type Adapter struct {
	target Snapshotter

	hits, misses                  *prometheus.Desc
	loadSuccesses, loadFailures   *prometheus.Desc
	totalLoadNanos                *prometheus.Desc
	evictionCount, evictionWeight *prometheus.Desc
	sizeEntries, sizeWeight        *prometheus.Desc

	evictsByReason  *prometheus.CounterVec
	removesByReason *prometheus.CounterVec
}

// New constructs a Prometheus adapter. The cache to report on is
// supplied later via Attach, once cache.Builder.Build has returned one.
//   - reg:         registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to every metric (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(ns, sub, name), help, nil, constLabels)
	}

	a := &Adapter{
		hits:           desc("hits_total", "Cache hits"),
		misses:         desc("misses_total", "Cache misses"),
		loadSuccesses:  desc("load_successes_total", "Successful loader calls"),
		loadFailures:   desc("load_failures_total", "Failed loader calls"),
		totalLoadNanos: desc("load_time_nanos_total", "Cumulative loader time in nanoseconds"),
		evictionCount:  desc("evictions_total", "Entries evicted by the active policy"),
		evictionWeight: desc("eviction_weight_total", "Weight freed by eviction"),
		sizeEntries:    desc("size_entries", "Number of resident entries"),
		sizeWeight:     desc("size_weight", "Total resident weight"),
		evictsByReason: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evictions_by_reason_total",
			Help:        "Evictions broken down by bound that triggered them",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		removesByReason: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "removes_by_reason_total",
			Help:        "Explicit removes/replacements broken down by cause",
			ConstLabels: constLabels,
		}, []string{"reason"}),
	}
	reg.MustRegister(a, a.evictsByReason, a.removesByReason)
	return a
}

// Describe implements prometheus.Collector.
func (a *Adapter) Describe(ch chan<- *prometheus.Desc) {
	ch <- a.hits
	ch <- a.misses
	ch <- a.loadSuccesses
	ch <- a.loadFailures
	ch <- a.totalLoadNanos
	ch <- a.evictionCount
	ch <- a.evictionWeight
	ch <- a.sizeEntries
	ch <- a.sizeWeight
}

// Attach points the adapter at the cache whose statistics it reports.
// Call it once, right after cache.Builder.Build returns. Until Attach is
// called, Collect emits no metrics.
func (a *Adapter) Attach(target Snapshotter) { a.target = target }

// Collect implements prometheus.Collector, reading a fresh snapshot on
// every scrape rather than maintaining its own counters.
func (a *Adapter) Collect(ch chan<- prometheus.Metric) {
	if a.target == nil {
		return
	}
	snap := a.target.Stats()
	ch <- prometheus.MustNewConstMetric(a.hits, prometheus.CounterValue, float64(snap.HitCount))
	ch <- prometheus.MustNewConstMetric(a.misses, prometheus.CounterValue, float64(snap.MissCount))
	ch <- prometheus.MustNewConstMetric(a.loadSuccesses, prometheus.CounterValue, float64(snap.LoadSuccessCount))
	ch <- prometheus.MustNewConstMetric(a.loadFailures, prometheus.CounterValue, float64(snap.LoadFailureCount))
	ch <- prometheus.MustNewConstMetric(a.totalLoadNanos, prometheus.CounterValue, float64(snap.TotalLoadTimeNanos))
	ch <- prometheus.MustNewConstMetric(a.evictionCount, prometheus.CounterValue, float64(snap.EvictionCount))
	ch <- prometheus.MustNewConstMetric(a.evictionWeight, prometheus.CounterValue, float64(snap.EvictionWeight))
	ch <- prometheus.MustNewConstMetric(a.sizeEntries, prometheus.GaugeValue, float64(a.target.Size()))
	ch <- prometheus.MustNewConstMetric(a.sizeWeight, prometheus.GaugeValue, float64(a.target.Weight()))
}

// Listeners returns a cache.Builder.WithListener callback that feeds
// evictsByReason/removesByReason from the cache's own EventDispatcher.
// Wire it in at construction time, then Attach the built cache:
//
//	a := prom.New(nil, "myapp", "cache", nil)
//	c, _ := cache.NewBuilder[string, string]().
//		WithListener(prom.Listeners[string, string](a)).
//		Build()
//	a.Attach(c)
func Listeners[K comparable, V any](a *Adapter) func(*events.Dispatcher[K, V]) {
	return func(d *events.Dispatcher[K, V]) {
		d.OnEvict(func(_ K, _ V, reason events.EvictReason) {
			a.evictsByReason.WithLabelValues(evictReasonLabel(reason)).Inc()
		})
		d.OnRemove(func(_ K, _ V, reason events.RemoveReason) {
			a.removesByReason.WithLabelValues(removeReasonLabel(reason)).Inc()
		})
	}
}

func evictReasonLabel(r events.EvictReason) string {
	switch r {
	case events.EvictWeight:
		return "weight"
	default:
		return "size"
	}
}

func removeReasonLabel(r events.RemoveReason) string {
	switch r {
	case events.RemoveReplaced:
		return "replaced"
	default:
		return "explicit"
	}
}

var _ prometheus.Collector = (*Adapter)(nil)
