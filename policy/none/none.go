// Package none implements the no-op eviction policy: it tracks nothing
// beyond insertion order, so a cache configured with it still honors
// maximumSize/maximumWeight (falling back to oldest-first eviction) but
// never promotes an entry for being read or updated.
package none

import "github.com/nullforge/corecache/policy"

type shardPolicy[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type factory[K comparable, V any] struct{}

// New returns a Policy factory that constructs per-shard None instances.
//
// spec.md lists "None" alongside LRU/LFU/FIFO/LIFO/W-TinyLFU as a
// selectable evictionPolicy variant without defining what it evicts when
// a size or weight bound is still configured. We resolve that silence by
// having None track plain insertion order (equivalent to FIFO without
// the named policy's promotion semantics) rather than refuse to evict at
// all, which would violate the size/weight invariants the Builder
// otherwise guarantees.
func New[K comparable, V any]() policy.Policy[K, V] { return factory[K, V]{} }

func (factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &shardPolicy[K, V]{h: h}
}

func (p *shardPolicy[K, V]) OnAdmit(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	return nil
}

func (p *shardPolicy[K, V]) OnAccess(policy.Node[K, V]) {}
func (p *shardPolicy[K, V]) OnUpdate(policy.Node[K, V]) {}
func (p *shardPolicy[K, V]) OnRemove(policy.Node[K, V]) {}

func (p *shardPolicy[K, V]) SelectVictim() policy.Node[K, V] { return p.h.Back() }
func (p *shardPolicy[K, V]) Clear()                          {}
