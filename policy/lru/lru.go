// Package lru implements the LRU eviction policy: admission pushes to the
// head, every access or update promotes to the head, and the victim is
// always the tail.
package lru

import "github.com/nullforge/corecache/policy"

// shardPolicy is a classic "move-to-front" Least-Recently-Used policy. It
// delegates all list manipulation to the policy.Hooks provided by the shard.
type shardPolicy[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type factory[K comparable, V any] struct{}

// New returns a Policy factory that constructs per-shard LRU instances.
func New[K comparable, V any]() policy.Policy[K, V] { return factory[K, V]{} }

// New implements policy.Policy by binding shard hooks and returning a
// shard-local policy instance.
func (factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &shardPolicy[K, V]{h: h}
}

// OnAdmit places the new entry at the head. LRU doesn't preempt other
// entries on admission; the shard enforces capacity/weight limits via
// SelectVictim after the insert.
func (p *shardPolicy[K, V]) OnAdmit(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	return nil
}

// OnAccess promotes the entry to the head.
func (p *shardPolicy[K, V]) OnAccess(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnUpdate promotes the entry to the head (updates count as recent use).
func (p *shardPolicy[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnRemove is a no-op: pure LRU keeps no state beyond the shared list.
func (p *shardPolicy[K, V]) OnRemove(policy.Node[K, V]) {}

// SelectVictim returns the tail: the least-recently-used entry.
func (p *shardPolicy[K, V]) SelectVictim() policy.Node[K, V] { return p.h.Back() }

// Clear is a no-op: LRU holds no state beyond the shared list, which the
// shard clears itself.
func (p *shardPolicy[K, V]) Clear() {}
