// Package fifo implements the FIFO eviction policy: entries are evicted in
// strict insertion order regardless of how often they are subsequently
// read or updated.
package fifo

import "github.com/nullforge/corecache/policy"

type shardPolicy[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type factory[K comparable, V any] struct{}

// New returns a Policy factory that constructs per-shard FIFO instances.
func New[K comparable, V any]() policy.Policy[K, V] { return factory[K, V]{} }

func (factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &shardPolicy[K, V]{h: h}
}

// OnAdmit places the new entry at the head; its position is never revised.
func (p *shardPolicy[K, V]) OnAdmit(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	return nil
}

// OnAccess is a no-op: reads never change insertion order.
func (p *shardPolicy[K, V]) OnAccess(policy.Node[K, V]) {}

// OnUpdate is a no-op: replacing a value in place keeps its original slot.
func (p *shardPolicy[K, V]) OnUpdate(policy.Node[K, V]) {}

// OnRemove is a no-op: FIFO holds no state beyond the shared list.
func (p *shardPolicy[K, V]) OnRemove(policy.Node[K, V]) {}

// SelectVictim returns the oldest surviving entry (the tail).
func (p *shardPolicy[K, V]) SelectVictim() policy.Node[K, V] { return p.h.Back() }

// Clear is a no-op.
func (p *shardPolicy[K, V]) Clear() {}
