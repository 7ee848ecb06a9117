// Package twoq implements the 2Q eviction policy: first-time admissions
// pass through a bounded probationary queue (A1in) before earning full
// residency in the shared list (Am); entries evicted out of A1in leave a
// ghost key (A1out) behind so a key that returns soon after eviction is
// promoted straight into Am, recognizing a returning scan the plain LRU
// policy would otherwise thrash on.
package twoq

import (
	"container/list"

	"github.com/nullforge/corecache/policy"
)

// shardPolicy holds one shard's A1in/A1out bookkeeping alongside the
// shared list the shard's Hooks expose.
type shardPolicy[K comparable, V any] struct {
	h policy.Hooks[K, V]

	capIn    int // A1in capacity (per-shard)
	capGhost int // A1out (ghost) capacity (per-shard)

	// A1in: MRU at Front() -> LRU at Back()
	inList *list.List
	inIdx  map[policy.Node[K, V]]*list.Element

	// A1out (ghosts): keys only, MRU at Front() -> LRU at Back()
	ghostList *list.List
	ghostIdx  map[K]*list.Element
}

type factory[K comparable, V any] struct {
	capIn, capGhost int
}

// New returns a Policy factory sizing A1in and the ghost queue at capIn
// and capGhost entries respectively. Common choices: capIn around 25%
// and capGhost around 50-100% of the shard's own capacity — on a
// sharded cache.Builder that means dividing maximumSize by the shard
// count before calling New, since New is invoked once per shard.
func New[K comparable, V any](capIn, capGhost int) policy.Policy[K, V] {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return factory[K, V]{capIn: capIn, capGhost: capGhost}
}

func (f factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &shardPolicy[K, V]{
		h:         h,
		capIn:     f.capIn,
		capGhost:  f.capGhost,
		inList:    list.New(),
		inIdx:     make(map[policy.Node[K, V]]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[K]*list.Element),
	}
}

// OnAdmit: a key with a surviving ghost entry bypasses A1in straight
// into Am; otherwise it enters A1in. When A1in overflows its own
// capacity, its coldest entry is proposed for eviction — note this is
// independent of the shard's overall size/weight bound, which
// enforceLimitsLocked polices separately via SelectVictim.
func (p *shardPolicy[K, V]) OnAdmit(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	k := n.Key()
	if ge, ok := p.ghostIdx[k]; ok {
		p.ghostList.Remove(ge)
		delete(p.ghostIdx, k)
		p.h.PushFront(n)
		return nil
	}

	p.h.PushFront(n)
	p.inIdx[n] = p.inList.PushFront(n)

	if p.inList.Len() > p.capIn {
		if lru := p.inList.Back(); lru != nil {
			return lru.Value.(policy.Node[K, V])
		}
	}
	return nil
}

// OnAccess promotes n out of A1in — a second touch earns full residency
// in Am — and moves it to the head of the shared list either way.
func (p *shardPolicy[K, V]) OnAccess(n policy.Node[K, V]) {
	if el, ok := p.inIdx[n]; ok {
		p.inList.Remove(el)
		delete(p.inIdx, n)
	}
	p.h.MoveToFront(n)
}

// OnUpdate follows OnAccess semantics: a write counts as recent use.
func (p *shardPolicy[K, V]) OnUpdate(n policy.Node[K, V]) { p.OnAccess(n) }

// OnRemove drops n from whichever internal structure holds it. A node
// leaving A1in (as opposed to Am) leaves a ghost key behind.
func (p *shardPolicy[K, V]) OnRemove(n policy.Node[K, V]) {
	el, ok := p.inIdx[n]
	if !ok {
		return
	}
	p.inList.Remove(el)
	delete(p.inIdx, n)

	k := n.Key()
	if old := p.ghostIdx[k]; old != nil {
		p.ghostList.Remove(old)
	}
	p.ghostIdx[k] = p.ghostList.PushFront(k)

	for p.ghostList.Len() > p.capGhost {
		tail := p.ghostList.Back()
		if tail == nil {
			break
		}
		delete(p.ghostIdx, tail.Value.(K))
		p.ghostList.Remove(tail)
	}
}

// SelectVictim returns the shared list's tail: the entry least recently
// pushed or promoted, which may sit in either A1in or Am, since both
// share the one list. Used when the shard's own size/
// weight bound is exceeded, independent of A1in's internal capacity.
func (p *shardPolicy[K, V]) SelectVictim() policy.Node[K, V] { return p.h.Back() }

// Clear drops every internal structure; the shard clears the shared
// list itself.
func (p *shardPolicy[K, V]) Clear() {
	p.inList.Init()
	p.inIdx = make(map[policy.Node[K, V]]*list.Element)
	p.ghostList.Init()
	p.ghostIdx = make(map[K]*list.Element)
}
