// Package lifo implements the LIFO eviction policy: the most recently
// inserted (or replaced) entry is evicted first.
package lifo

import "github.com/nullforge/corecache/policy"

type shardPolicy[K comparable, V any] struct {
	h policy.Hooks[K, V]
}

type factory[K comparable, V any] struct{}

// New returns a Policy factory that constructs per-shard LIFO instances.
func New[K comparable, V any]() policy.Policy[K, V] { return factory[K, V]{} }

func (factory[K, V]) New(h policy.Hooks[K, V]) policy.ShardPolicy[K, V] {
	return &shardPolicy[K, V]{h: h}
}

// OnAdmit places the new entry at the head; being the newest, it is also
// the current victim-in-waiting.
func (p *shardPolicy[K, V]) OnAdmit(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	return nil
}

// OnAccess is a no-op: reads never change which entry is "most recent".
func (p *shardPolicy[K, V]) OnAccess(policy.Node[K, V]) {}

// OnUpdate moves the entry to the head: an in-place replacement is, for
// LIFO's purposes, a new entry and becomes the next victim again.
func (p *shardPolicy[K, V]) OnUpdate(n policy.Node[K, V]) { p.h.MoveToFront(n) }

// OnRemove is a no-op: LIFO holds no state beyond the shared list.
func (p *shardPolicy[K, V]) OnRemove(policy.Node[K, V]) {}

// SelectVictim returns the most recently inserted/updated entry (the head).
func (p *shardPolicy[K, V]) SelectVictim() policy.Node[K, V] { return p.h.Front() }

// Clear is a no-op.
func (p *shardPolicy[K, V]) Clear() {}
