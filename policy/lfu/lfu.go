// Package lfu implements the LFU eviction policy: entries are bucketed by
// access frequency, and the victim is always the oldest entry in the
// minimum non-empty frequency bucket.
package lfu

import (
	"container/list"

	"github.com/nullforge/corecache/policy"
)

type shardPolicy[K comparable, V any] struct {
	h policy.Hooks[K, V]

	buckets map[uint32]*list.List
	index   map[K]*list.Element
	minFreq uint32
	maxFreq uint32
}

type factory[K comparable, V any] struct{}

// New returns a Policy factory that constructs per-shard LFU instances.
func New[K comparable, V any]() policy.Policy[K, V] { return factory[K, V]{} }

func (factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &shardPolicy[K, V]{
		h:       h,
		buckets: make(map[uint32]*list.List),
		index:   make(map[K]*list.Element),
	}
}

// OnAdmit assigns the entry a starting frequency of 1 and registers it in
// the shared list (for the shard's count/weight bookkeeping) and the
// frequency-1 bucket.
func (p *shardPolicy[K, V]) OnAdmit(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	if n.Frequency() == 0 {
		n.IncrementFrequency()
	}
	p.attach(n, n.Frequency())
	return nil
}

// OnAccess bumps the frequency counter and moves the node to the back of
// its new bucket (oldest-in-bucket ordering still picks it last among
// peers at the same frequency).
func (p *shardPolicy[K, V]) OnAccess(n policy.Node[K, V]) {
	old := n.Frequency()
	p.detach(n.Key(), old)
	n.IncrementFrequency()
	p.attach(n, n.Frequency())
}

// OnUpdate leaves frequency untouched: spec.md increments frequency only
// on read, not on in-place value replacement.
func (p *shardPolicy[K, V]) OnUpdate(policy.Node[K, V]) {}

// OnRemove drops the entry from its frequency bucket.
func (p *shardPolicy[K, V]) OnRemove(n policy.Node[K, V]) {
	p.detach(n.Key(), n.Frequency())
}

// SelectVictim returns the oldest entry in the minimum non-empty
// frequency bucket, advancing minFreq past any buckets that have since
// emptied out.
func (p *shardPolicy[K, V]) SelectVictim() policy.Node[K, V] {
	for f := p.minFreq; f <= p.maxFreq; f++ {
		lst, ok := p.buckets[f]
		if !ok || lst.Len() == 0 {
			continue
		}
		p.minFreq = f
		return lst.Front().Value.(policy.Node[K, V])
	}
	return nil
}

// Clear drops all bucket state.
func (p *shardPolicy[K, V]) Clear() {
	p.buckets = make(map[uint32]*list.List)
	p.index = make(map[K]*list.Element)
	p.minFreq = 0
	p.maxFreq = 0
}

func (p *shardPolicy[K, V]) attach(n policy.Node[K, V], freq uint32) {
	lst, ok := p.buckets[freq]
	if !ok {
		lst = list.New()
		p.buckets[freq] = lst
	}
	p.index[n.Key()] = lst.PushBack(n)
	if freq < p.minFreq || p.minFreq == 0 {
		p.minFreq = freq
	}
	if freq > p.maxFreq {
		p.maxFreq = freq
	}
}

func (p *shardPolicy[K, V]) detach(key K, freq uint32) {
	el, ok := p.index[key]
	if !ok {
		return
	}
	if lst, ok := p.buckets[freq]; ok {
		lst.Remove(el)
		if lst.Len() == 0 {
			delete(p.buckets, freq)
		}
	}
	delete(p.index, key)
}
