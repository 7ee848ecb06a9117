package cache

import (
	"context"
	"time"

	corecacheerrors "github.com/nullforge/corecache/errors"
	"github.com/nullforge/corecache/events"
	"github.com/nullforge/corecache/internal/util"
	"github.com/nullforge/corecache/policy"
	"github.com/nullforge/corecache/policy/fifo"
	"github.com/nullforge/corecache/policy/lfu"
	"github.com/nullforge/corecache/policy/lifo"
	"github.com/nullforge/corecache/policy/lru"
	"github.com/nullforge/corecache/policy/none"
	"github.com/nullforge/corecache/policy/twoq"
	"github.com/nullforge/corecache/policy/wtinylfu"
	"github.com/nullforge/corecache/sketch"
)

// EvictionPolicyVariant selects among the pluggable eviction algorithms
// spec.md §6 enumerates for the evictionPolicy builder option.
type EvictionPolicyVariant int

const (
	LRU EvictionPolicyVariant = iota
	LFU
	FIFO
	LIFO
	WTinyLFU
	TwoQ
	NonePolicy
)

// defaultMaximumSize is applied when a Builder specifies neither
// maximumSize nor maximumWeight. spec.md's Open Question (a) treats the
// source's many overlapping "profile" presets as configuration sugar
// over a builder-defaults table rather than core behavior; this is that
// table's one entry, chosen so a cache never silently grows unbounded.
const defaultMaximumSize = 10_000

// Builder validates and constructs a Cache. Construction is all-or-
// nothing: Build returns either a ready-to-use Cache or a
// ConfigurationError, never a partially built cache.
type Builder[K comparable, V any] struct {
	maximumSize   int64
	sizeSet       bool
	maximumWeight int64
	weightSet     bool
	weigher       Weigher[V]

	expireAfterWrite  time.Duration
	expireAfterAccess time.Duration
	refreshAfterWrite time.Duration

	evictionPolicy   EvictionPolicyVariant
	sketchVariant    sketch.Variant
	sketchVariantSet bool

	concurrencyLevel int
	initialCapacity  int
	softValues       bool
	recordStats      bool

	loader      func(ctx context.Context, k K) (V, error)
	asyncLoader bool

	listeners []func(*events.Dispatcher[K, V])

	clock  Clock
	logger Logger
}

// NewBuilder returns a Builder with spec.md §6's implicit defaults:
// LRU eviction, no TTLs, no loader, stats disabled.
func NewBuilder[K comparable, V any]() *Builder[K, V] {
	return &Builder[K, V]{evictionPolicy: LRU}
}

func (b *Builder[K, V]) WithMaximumSize(n int64) *Builder[K, V] {
	b.maximumSize, b.sizeSet = n, true
	return b
}

func (b *Builder[K, V]) WithMaximumWeight(n int64) *Builder[K, V] {
	b.maximumWeight, b.weightSet = n, true
	return b
}

func (b *Builder[K, V]) WithWeigher(w Weigher[V]) *Builder[K, V] {
	b.weigher = w
	return b
}

func (b *Builder[K, V]) WithExpireAfterWrite(d time.Duration) *Builder[K, V] {
	b.expireAfterWrite = d
	return b
}

func (b *Builder[K, V]) WithExpireAfterAccess(d time.Duration) *Builder[K, V] {
	b.expireAfterAccess = d
	return b
}

func (b *Builder[K, V]) WithRefreshAfterWrite(d time.Duration) *Builder[K, V] {
	b.refreshAfterWrite = d
	return b
}

func (b *Builder[K, V]) WithEvictionPolicy(v EvictionPolicyVariant) *Builder[K, V] {
	b.evictionPolicy = v
	return b
}

func (b *Builder[K, V]) WithFrequencySketch(v sketch.Variant) *Builder[K, V] {
	b.sketchVariant, b.sketchVariantSet = v, true
	return b
}

func (b *Builder[K, V]) WithConcurrencyLevel(n int) *Builder[K, V] {
	b.concurrencyLevel = n
	return b
}

func (b *Builder[K, V]) WithInitialCapacity(n int) *Builder[K, V] {
	b.initialCapacity = n
	return b
}

func (b *Builder[K, V]) WithSoftValues() *Builder[K, V] {
	b.softValues = true
	return b
}

func (b *Builder[K, V]) WithRecordStats() *Builder[K, V] {
	b.recordStats = true
	return b
}

// WithLoader enables getOrLoad. The loader also backs refreshAfterWrite
// kicks when one is configured.
func (b *Builder[K, V]) WithLoader(fn func(ctx context.Context, k K) (V, error)) *Builder[K, V] {
	b.loader = fn
	return b
}

// WithAsyncLoader sets the loader like WithLoader and also records an
// asyncLoader flag. The cache has no separate asynchronous load call:
// GetOrLoad uses the loader synchronously either way.
func (b *Builder[K, V]) WithAsyncLoader(fn func(ctx context.Context, k K) (V, error)) *Builder[K, V] {
	b.loader, b.asyncLoader = fn, true
	return b
}

// WithListener registers a callback that attaches listeners to the
// cache's EventDispatcher at construction time.
func (b *Builder[K, V]) WithListener(register func(*events.Dispatcher[K, V])) *Builder[K, V] {
	b.listeners = append(b.listeners, register)
	return b
}

func (b *Builder[K, V]) WithClock(c Clock) *Builder[K, V] {
	b.clock = c
	return b
}

func (b *Builder[K, V]) WithLogger(l Logger) *Builder[K, V] {
	b.logger = l
	return b
}

// Build validates the accumulated options per spec.md §4.11 and
// constructs a Cache, or returns a ConfigurationError.
func (b *Builder[K, V]) Build() (Cache[K, V], error) {
	if b.sizeSet && b.maximumSize <= 0 {
		return nil, corecacheerrors.NewInvalidMaxSize(int(b.maximumSize))
	}
	if b.weightSet && b.maximumWeight <= 0 {
		return nil, corecacheerrors.NewInvalidMaxWeight(b.maximumWeight)
	}
	if b.weightSet && b.weigher == nil {
		return nil, corecacheerrors.NewMissingWeigher()
	}
	if b.expireAfterWrite < 0 {
		return nil, corecacheerrors.NewInvalidDuration("expireAfterWrite", b.expireAfterWrite)
	}
	if b.expireAfterAccess < 0 {
		return nil, corecacheerrors.NewInvalidDuration("expireAfterAccess", b.expireAfterAccess)
	}
	if b.refreshAfterWrite < 0 {
		return nil, corecacheerrors.NewInvalidDuration("refreshAfterWrite", b.refreshAfterWrite)
	}
	if b.concurrencyLevel < 0 {
		return nil, corecacheerrors.NewInvalidConcurrency(b.concurrencyLevel)
	}
	if b.refreshAfterWrite > 0 && b.loader == nil {
		return nil, corecacheerrors.NewContradictoryBound()
	}

	maximumSize := b.maximumSize
	if !b.sizeSet && !b.weightSet {
		maximumSize = defaultMaximumSize
	}

	shards := b.concurrencyLevel
	if shards <= 0 {
		shards = util.ReasonableShardCount()
	} else {
		shards = int(util.NextPow2(uint64(shards)))
	}

	var perShardSize int64
	if maximumSize > 0 {
		perShardSize = ceilDiv(maximumSize, int64(shards))
	}
	var perShardWeight int64
	if b.weightSet {
		perShardWeight = ceilDiv(b.maximumWeight, int64(shards))
	}

	factory := b.buildPolicyFactory(maximumSize, perShardSize)

	clock := b.clock
	if clock == nil {
		clock = systemTimeProvider{}
	}
	logger := b.logger
	if logger == nil {
		logger = NoOpLogger{}
	}

	cfg := &config[K, V]{
		maximumSize:     maximumSize,
		maximumWeight:   b.maximumWeight,
		weigher:         b.weigher,
		policyFactory:   factory,
		shards:          shards,
		perShardSize:    perShardSize,
		perShardWeight:  perShardWeight,
		initialCapacity: b.initialCapacity,
		softValues:      b.softValues,
		recordStats:     b.recordStats,
		loader:          b.loader,
		asyncLoader:     b.asyncLoader,
		clock:           clock,
		logger:          logger,
	}
	cfg.expireAfterWrite.Store(int64(b.expireAfterWrite))
	cfg.expireAfterAccess.Store(int64(b.expireAfterAccess))
	cfg.refreshAfterWrite.Store(int64(b.refreshAfterWrite))

	disp := events.New[K, V]()
	for _, register := range b.listeners {
		register(disp)
	}

	return newCacheImpl(cfg, disp), nil
}

func (b *Builder[K, V]) buildPolicyFactory(maximumSize, perShardSize int64) policy.Policy[K, V] {
	switch b.evictionPolicy {
	case LFU:
		return lfu.New[K, V]()
	case FIFO:
		return fifo.New[K, V]()
	case LIFO:
		return lifo.New[K, V]()
	case NonePolicy:
		return none.New[K, V]()
	case TwoQ:
		capIn := int(perShardSize) / 4
		capGhost := int(perShardSize) / 2
		return twoq.New[K, V](capIn, capGhost)
	case WTinyLFU:
		variant := b.sketchVariant
		if !b.sketchVariantSet {
			variant = sketch.Optimized
		}
		sk := sketch.New(variant, int(maximumSize))
		return wtinylfu.New[K, V](sk, int(perShardSize))
	default:
		return lru.New[K, V]()
	}
}
