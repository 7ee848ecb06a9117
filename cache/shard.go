package cache

import (
	"reflect"
	"sync"

	corecacheerrors "github.com/nullforge/corecache/errors"
	"github.com/nullforge/corecache/events"
	"github.com/nullforge/corecache/policy"
	"github.com/nullforge/corecache/stats"
)

// shard is one partition of the concurrent map: its own lock, its own
// key→node table, and an intrusive doubly linked list (head = most
// recently pushed/promoted, tail = least) that the shard's policy
// instance manipulates through policy.Hooks. Operations within a shard
// serialize; shards never block each other.
type shard[K comparable, V any] struct {
	mu sync.Mutex

	m    map[K]*node[K, V]
	head *node[K, V]
	tail *node[K, V]
	len  int
	weight int64

	maxSize   int64 // 0 = unbounded by count
	maxWeight int64 // 0 = unbounded by weight

	pol policy.ShardPolicy[K, V]
	cfg *config[K, V]
	hash func(K) uint64

	seq uint64

	stats  *stats.Recorder
	events *events.Dispatcher[K, V]
}

func newShard[K comparable, V any](
	maxSize, maxWeight int64,
	polFactory policy.Policy[K, V],
	cfg *config[K, V],
	st *stats.Recorder,
	disp *events.Dispatcher[K, V],
	hash func(K) uint64,
) *shard[K, V] {
	s := &shard[K, V]{
		m:         make(map[K]*node[K, V], cfg.initialCapacity),
		maxSize:   maxSize,
		maxWeight: maxWeight,
		cfg:       cfg,
		hash:      hash,
		stats:     st,
		events:    disp,
	}
	s.pol = polFactory.New(shardHooks[K, V]{s: s})
	return s
}

// Get returns the value for k, promoting it per the active policy.
// refreshDue reports whether refreshAfterWrite has elapsed, so the
// caller can kick an asynchronous reload while still returning the
// current value.
func (s *shard[K, V]) Get(k K, now int64) (val V, ok bool, refreshDue bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, found := s.m[k]
	if !found {
		s.stats.RecordMiss()
		return
	}
	if s.expiredLocked(n, now) {
		s.expireNodeLocked(n)
		s.stats.RecordMiss()
		return
	}
	n.accessNanos = now
	s.pol.OnAccess(n)
	s.stats.RecordHit()
	val, ok = n.val, true
	refreshDue = s.refreshDueLocked(n, now)
	return
}

// Put inserts or replaces k→v. It fails with CapacityError, leaving the
// shard unchanged, if v's own weight exceeds the shard's weight bound.
func (s *shard[K, V]) Put(k K, v V, now int64) (prev V, existed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(k, v, now)
}

func (s *shard[K, V]) putLocked(k K, v V, now int64) (prev V, existed bool, err error) {
	w := s.weightOf(v)
	if s.maxWeight > 0 && w > s.maxWeight {
		err = corecacheerrors.NewCapacityExceeded(k, w, s.maxWeight)
		return
	}

	if n, ok := s.m[k]; ok {
		prev, existed = n.val, true
		s.weight += w - n.weight
		if s.weight < 0 {
			s.weight = 0
		}
		n.val = v
		n.weight = w
		n.writeNanos = now
		n.accessNanos = now
		s.pol.OnUpdate(n)
		s.events.DispatchRemove(k, prev, events.RemoveReplaced)
		s.events.DispatchPut(k, v)
		s.enforceLimitsLocked()
		return
	}

	n := &node[K, V]{
		key: k, val: v, hash: s.hash(k), weight: w,
		seq: s.nextSeq(), writeNanos: now, accessNanos: now,
	}
	s.m[k] = n
	if ev := s.pol.OnAdmit(n); ev != nil {
		s.evictNodeLocked(ev.(*node[K, V]), s.boundReason())
	}
	s.events.DispatchPut(k, v)
	s.enforceLimitsLocked()
	return
}

// PutIfAbsent inserts k→v only if k is not already present. It returns
// the existing value and true if k was already present (no mutation).
func (s *shard[K, V]) PutIfAbsent(k K, v V, now int64) (prev V, existed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.m[k]; ok {
		return n.val, true, nil
	}
	_, _, err = s.putLocked(k, v, now)
	return
}

// Replace updates k's value unconditionally if present, returning the
// previous value and whether an update occurred.
func (s *shard[K, V]) Replace(k K, v V, now int64) (prev V, existed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[k]; !ok {
		return
	}
	return s.putLocked(k, v, now)
}

// ReplaceIfEqual performs a compare-and-swap: newV replaces the current
// value only if it deep-equals oldV.
func (s *shard[K, V]) ReplaceIfEqual(k K, oldV, newV V, now int64) (swapped bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok || !reflect.DeepEqual(n.val, oldV) {
		return false, nil
	}
	_, _, err = s.putLocked(k, newV, now)
	return err == nil, err
}

// Remove deletes k if present, reporting RemoveExplicit.
func (s *shard[K, V]) Remove(k K) (v V, existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return
	}
	v, existed = n.val, true
	s.removeNodeLocked(n, events.RemoveExplicit)
	return
}

// RemoveIfEqual deletes k only if its current value deep-equals v.
func (s *shard[K, V]) RemoveIfEqual(k K, v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok || !reflect.DeepEqual(n.val, v) {
		return false
	}
	s.removeNodeLocked(n, events.RemoveExplicit)
	return true
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len
}

// Weight returns the aggregate weight of resident entries in this shard.
func (s *shard[K, V]) Weight() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weight
}

// Clear removes every entry, reporting RemoveExplicit for each, and
// resets the policy's internal state.
func (s *shard[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, n := range s.m {
		s.events.DispatchRemove(k, n.val, events.RemoveExplicit)
	}
	s.m = make(map[K]*node[K, V], s.cfg.initialCapacity)
	s.head, s.tail = nil, nil
	s.len, s.weight = 0, 0
	s.pol.Clear()
}

// SweepExpired removes every entry expired as of now, reporting
// onExpire. Called by cacheImpl.CleanUp, which the shared Scheduler runs
// periodically; the read path checks a single key's expiry itself.
func (s *shard[K, V]) SweepExpired(now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.m {
		if s.expiredLocked(n, now) {
			s.expireNodeLocked(n)
		}
	}
}

// DueForRefresh returns the keys whose refreshAfterWrite window has
// elapsed as of now, for the shared Scheduler's eager refresh-kick task.
// It does not mutate any entry; the caller triggers the actual reload.
func (s *shard[K, V]) DueForRefresh(now int64) []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []K
	for k, n := range s.m {
		if s.refreshDueLocked(n, now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// -------------------- internals (mu held) --------------------

func (s *shard[K, V]) expiredLocked(n *node[K, V], now int64) bool {
	if wt := s.cfg.ExpireAfterWrite(); wt > 0 && now-n.writeNanos >= int64(wt) {
		return true
	}
	if at := s.cfg.ExpireAfterAccess(); at > 0 && now-n.accessNanos >= int64(at) {
		return true
	}
	return false
}

func (s *shard[K, V]) refreshDueLocked(n *node[K, V], now int64) bool {
	rt := s.cfg.RefreshAfterWrite()
	return rt > 0 && now-n.writeNanos >= int64(rt)
}

func (s *shard[K, V]) weightOf(v V) int64 {
	if s.cfg.weigher == nil {
		return 1
	}
	w := s.cfg.weigher(v)
	if w < 0 {
		w = 0
	}
	return w
}

func (s *shard[K, V]) nextSeq() uint64 { s.seq++; return s.seq }

// boundReason reports which invariant the shard is currently enforcing,
// for eviction events triggered by the policy's own admission filter
// (e.g. W-TinyLFU's window-to-main rejection) rather than by
// enforceLimitsLocked's explicit count/weight loops.
func (s *shard[K, V]) boundReason() events.EvictReason {
	if s.maxWeight > 0 {
		return events.EvictWeight
	}
	return events.EvictSize
}

// enforceLimitsLocked evicts the policy's selected victim until both the
// count and weight bounds (whichever are active) are satisfied.
func (s *shard[K, V]) enforceLimitsLocked() {
	for s.maxSize > 0 && int64(s.len) > s.maxSize {
		victim := s.pol.SelectVictim()
		if victim == nil {
			break
		}
		s.evictNodeLocked(victim.(*node[K, V]), events.EvictSize)
	}
	for s.maxWeight > 0 && s.weight > s.maxWeight {
		victim := s.pol.SelectVictim()
		if victim == nil {
			break
		}
		s.evictNodeLocked(victim.(*node[K, V]), events.EvictWeight)
	}
}

// evictNodeLocked removes n because a size/weight bound (or the
// policy's own admission filter) sacrificed it.
func (s *shard[K, V]) evictNodeLocked(n *node[K, V], reason events.EvictReason) {
	s.pol.OnRemove(n)
	s.detach(n)
	delete(s.m, n.key)
	s.stats.RecordEviction(n.weight)
	s.events.DispatchEvict(n.key, n.val, reason)
}

// removeNodeLocked removes n because of an explicit remove or a put/
// replace that overwrote it. Not counted as an eviction.
func (s *shard[K, V]) removeNodeLocked(n *node[K, V], reason events.RemoveReason) {
	s.pol.OnRemove(n)
	s.detach(n)
	delete(s.m, n.key)
	s.events.DispatchRemove(n.key, n.val, reason)
}

// expireNodeLocked removes n because its TTL elapsed. Distinct from
// eviction: it is reported via onExpire and is not counted against
// evictionCount.
func (s *shard[K, V]) expireNodeLocked(n *node[K, V]) {
	s.pol.OnRemove(n)
	s.detach(n)
	delete(s.m, n.key)
	s.events.DispatchExpire(n.key, n.val)
}

// -------------------- intrusive list --------------------

func (s *shard[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.len++
	s.weight += n.weight
}

func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	s.unlink(n)
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

func (s *shard[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (s *shard[K, V]) detach(n *node[K, V]) {
	s.unlink(n)
	s.len--
	s.weight -= n.weight
	if s.weight < 0 {
		s.weight = 0
	}
}

func (s *shard[K, V]) frontNode() policy.Node[K, V] {
	if s.head == nil {
		return nil
	}
	return s.head
}

func (s *shard[K, V]) backNode() policy.Node[K, V] {
	if s.tail == nil {
		return nil
	}
	return s.tail
}

// -------------------- policy hooks --------------------

// shardHooks adapts the shard's intrusive list to policy.Hooks. All
// methods run under the shard's lock, held by whichever shard method
// invoked the policy.
type shardHooks[K comparable, V any] struct{ s *shard[K, V] }

func (h shardHooks[K, V]) PushFront(n policy.Node[K, V])   { h.s.insertFront(n.(*node[K, V])) }
func (h shardHooks[K, V]) MoveToFront(n policy.Node[K, V]) { h.s.moveToFront(n.(*node[K, V])) }
func (h shardHooks[K, V]) Remove(n policy.Node[K, V])      { h.s.detach(n.(*node[K, V])) }
func (h shardHooks[K, V]) Front() policy.Node[K, V]        { return h.s.frontNode() }
func (h shardHooks[K, V]) Back() policy.Node[K, V]         { return h.s.backNode() }
func (h shardHooks[K, V]) Len() int                        { return h.s.len }
