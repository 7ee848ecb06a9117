// Package wtinylfu implements the Window-TinyLFU eviction policy: a small
// admission window LRU in front of a segmented main region (probationary
// and protected LRUs), with admission into the main region gated by a
// shared Count-Min frequency sketch so that a high-frequency resident
// entry cannot be evicted by a one-off scan.
package wtinylfu

import (
	"container/list"

	"github.com/nullforge/corecache/policy"
	"github.com/nullforge/corecache/sketch"
)

// segment is a small intrusive LRU used for one of the window/probation/
// protected regions. It is unexported: callers only ever see it through
// shardPolicy.
type segment[K comparable, V any] struct {
	cap   int
	lst   *list.List
	index map[K]*list.Element
}

func newSegment[K comparable, V any](cap int) *segment[K, V] {
	return &segment[K, V]{cap: cap, lst: list.New(), index: make(map[K]*list.Element)}
}

func (s *segment[K, V]) len() int { return s.lst.Len() }

func (s *segment[K, V]) contains(k K) bool {
	_, ok := s.index[k]
	return ok
}

func (s *segment[K, V]) pushFront(n policy.Node[K, V]) {
	s.index[n.Key()] = s.lst.PushFront(n)
}

func (s *segment[K, V]) moveToFront(k K) {
	if el, ok := s.index[k]; ok {
		s.lst.MoveToFront(el)
	}
}

func (s *segment[K, V]) remove(k K) policy.Node[K, V] {
	el, ok := s.index[k]
	if !ok {
		return nil
	}
	delete(s.index, k)
	s.lst.Remove(el)
	return el.Value.(policy.Node[K, V])
}

func (s *segment[K, V]) back() policy.Node[K, V] {
	if el := s.lst.Back(); el != nil {
		return el.Value.(policy.Node[K, V])
	}
	return nil
}

// shardPolicy holds one shard's window/probation/protected segments and a
// pointer into the cache-wide shared sketch.
type shardPolicy[K comparable, V any] struct {
	h policy.Hooks[K, V]
	sk *sketch.Sketch

	window    *segment[K, V]
	probation *segment[K, V]
	protected *segment[K, V]

	protectedCap int
	mainCap      int

	tieCounter uint64
}

type factoryImpl[K comparable, V any] struct {
	sk            *sketch.Sketch
	capacityHint  int
}

// New returns a Policy factory sharing the given FrequencySketch across
// every shard of the cache. capacityHint is the expected per-shard entry
// count, used to size the window (~1%) and main (protected ~80% of the
// remainder) regions; an inaccurate hint only affects how promptly the
// segments reach their steady-state split, never correctness.
func New[K comparable, V any](sk *sketch.Sketch, capacityHint int) policy.Policy[K, V] {
	if capacityHint < 1 {
		capacityHint = 1
	}
	return factoryImpl[K, V]{sk: sk, capacityHint: capacityHint}
}

func (f factoryImpl[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	windowCap := f.capacityHint / 100
	if windowCap < 1 {
		windowCap = 1
	}
	mainCap := f.capacityHint - windowCap
	if mainCap < 1 {
		mainCap = 1
	}
	protectedCap := mainCap * 8 / 10

	return &shardPolicy[K, V]{
		h:            h,
		sk:           f.sk,
		window:       newSegment[K, V](windowCap),
		probation:    newSegment[K, V](mainCap),
		protected:    newSegment[K, V](protectedCap),
		protectedCap: protectedCap,
		mainCap:      mainCap,
	}
}

// OnAdmit always admits into the window; if the window overflows, its LRU
// victim is forwarded to tryAdmitToMain, which may itself reject the
// candidate (in which case the candidate, not the newly admitted node, is
// the one evicted).
func (p *shardPolicy[K, V]) OnAdmit(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	p.window.pushFront(n)
	p.sk.Increment(n.Hash())

	if p.window.len() <= p.window.cap {
		return nil
	}
	candidate := p.window.back()
	p.window.remove(candidate.Key())
	return p.tryAdmitToMain(candidate)
}

// tryAdmitToMain places candidate on probation if there is room; otherwise
// it compares candidate's estimated frequency against the probation
// victim's and keeps whichever is higher, admitting ties with
// probability 1/2 via a deterministic per-shard counter.
func (p *shardPolicy[K, V]) tryAdmitToMain(candidate policy.Node[K, V]) policy.Node[K, V] {
	if p.probation.len()+p.protected.len() < p.mainCap {
		p.probation.pushFront(candidate)
		return nil
	}
	victim := p.probation.back()
	if victim == nil {
		p.probation.pushFront(candidate)
		return nil
	}

	cf := p.sk.Estimate(candidate.Hash())
	vf := p.sk.Estimate(victim.Hash())
	admitCandidate := cf > vf
	if cf == vf {
		p.tieCounter++
		admitCandidate = p.tieCounter%2 == 0
	}

	if admitCandidate {
		p.probation.remove(victim.Key())
		p.probation.pushFront(candidate)
		return victim
	}
	return candidate
}

// OnAccess promotes within whichever segment currently holds the node;
// a probation hit is promoted to protected (demoting protected's LRU
// back to probation if protected is full).
func (p *shardPolicy[K, V]) OnAccess(n policy.Node[K, V]) {
	p.sk.Increment(n.Hash())
	p.h.MoveToFront(n)

	key := n.Key()
	switch {
	case p.window.contains(key):
		p.window.moveToFront(key)
	case p.protected.contains(key):
		p.protected.moveToFront(key)
	case p.probation.contains(key):
		p.probation.remove(key)
		if p.protected.len() >= p.protectedCap && p.protectedCap > 0 {
			if demoted := p.protected.back(); demoted != nil {
				p.protected.remove(demoted.Key())
				p.probation.pushFront(demoted)
			}
		}
		p.protected.pushFront(n)
	}
}

// OnUpdate is treated the same as an access: an in-place value
// replacement still reflects current interest in the key.
func (p *shardPolicy[K, V]) OnUpdate(n policy.Node[K, V]) { p.OnAccess(n) }

// OnRemove drops the node from whichever segment holds it.
func (p *shardPolicy[K, V]) OnRemove(n policy.Node[K, V]) {
	key := n.Key()
	if p.window.contains(key) {
		p.window.remove(key)
		return
	}
	if p.protected.contains(key) {
		p.protected.remove(key)
		return
	}
	if p.probation.contains(key) {
		p.probation.remove(key)
	}
}

// SelectVictim is consulted when the shard is over its count/weight limit
// outside of admission-time filtering (e.g. a weight increase on
// update). Probation is sacrificed first, then protected, then window.
func (p *shardPolicy[K, V]) SelectVictim() policy.Node[K, V] {
	if v := p.probation.back(); v != nil {
		return v
	}
	if v := p.protected.back(); v != nil {
		return v
	}
	return p.window.back()
}

// Clear drops all three segments. The shared sketch is left intact: it
// belongs to the cache, not to any one shard.
func (p *shardPolicy[K, V]) Clear() {
	p.window = newSegment[K, V](p.window.cap)
	p.probation = newSegment[K, V](p.probation.cap)
	p.protected = newSegment[K, V](p.protected.cap)
}
