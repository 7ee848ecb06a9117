package lfu

import (
	"testing"

	"github.com/nullforge/corecache/policy"
)

type testNode struct {
	k    string
	v    int
	freq uint32
}

func (n *testNode) Key() string         { return n.k }
func (n *testNode) Value() *int         { return &n.v }
func (n *testNode) Hash() uint64        { return 0 }
func (n *testNode) Weight() int64       { return 1 }
func (n *testNode) Frequency() uint32   { return n.freq }
func (n *testNode) IncrementFrequency() { n.freq++ }
func (n *testNode) Sequence() uint64    { return 0 }

type mockHooks struct{}

func (h *mockHooks) MoveToFront(policy.Node[string, int]) {}
func (h *mockHooks) PushFront(policy.Node[string, int])   {}
func (h *mockHooks) Remove(policy.Node[string, int])      {}
func (h *mockHooks) Front() policy.Node[string, int]      { return nil }
func (h *mockHooks) Back() policy.Node[string, int]       { return nil }
func (h *mockHooks) Len() int                             { return 0 }

func TestLFU_VictimIsMinFrequencyOldest(t *testing.T) {
	p := New[string, int]().New(&mockHooks{})

	a := &testNode{k: "a"}
	b := &testNode{k: "b"}
	c := &testNode{k: "c"}
	p.OnAdmit(a) // freq 1
	p.OnAdmit(b) // freq 1
	p.OnAdmit(c) // freq 1

	p.OnAccess(b) // freq 2, a and c remain at freq 1, a admitted first

	if got := p.SelectVictim(); got != a {
		t.Fatalf("expected oldest freq-1 entry (a) as victim, got %v", got)
	}
}

func TestLFU_AccessPromotesOutOfMinBucket(t *testing.T) {
	p := New[string, int]().New(&mockHooks{})

	a := &testNode{k: "a"}
	b := &testNode{k: "b"}
	p.OnAdmit(a)
	p.OnAdmit(b)

	p.OnAccess(a) // a now freq 2, b remains the sole freq-1 entry

	if got := p.SelectVictim(); got != b {
		t.Fatalf("expected b (still freq 1) as victim, got %v", got)
	}
}

func TestLFU_RemoveClearsBucketMembership(t *testing.T) {
	p := New[string, int]().New(&mockHooks{})

	a := &testNode{k: "a"}
	p.OnAdmit(a)
	p.OnRemove(a)

	if got := p.SelectVictim(); got != nil {
		t.Fatalf("expected no victim after removing the only entry, got %v", got)
	}
}

func TestLFU_UpdateDoesNotBumpFrequency(t *testing.T) {
	p := New[string, int]().New(&mockHooks{})

	a := &testNode{k: "a"}
	p.OnAdmit(a)
	p.OnUpdate(a)

	if a.Frequency() != 1 {
		t.Fatalf("OnUpdate must not change frequency, got %d", a.Frequency())
	}
}
