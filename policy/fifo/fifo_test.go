package fifo

import (
	"testing"

	"github.com/nullforge/corecache/policy"
)

type testNode struct {
	k string
	v int
}

func (n *testNode) Key() string           { return n.k }
func (n *testNode) Value() *int           { return &n.v }
func (n *testNode) Hash() uint64          { return 0 }
func (n *testNode) Weight() int64         { return 1 }
func (n *testNode) Frequency() uint32     { return 0 }
func (n *testNode) IncrementFrequency()   {}
func (n *testNode) Sequence() uint64      { return 0 }

type mockHooks struct {
	pushFrontCnt   int
	moveToFrontCnt int
	backVal        policy.Node[string, int]
}

func (h *mockHooks) MoveToFront(policy.Node[string, int]) { h.moveToFrontCnt++ }
func (h *mockHooks) PushFront(policy.Node[string, int])   { h.pushFrontCnt++ }
func (h *mockHooks) Remove(policy.Node[string, int])      {}
func (h *mockHooks) Front() policy.Node[string, int]      { return nil }
func (h *mockHooks) Back() policy.Node[string, int]       { return h.backVal }
func (h *mockHooks) Len() int                             { return 0 }

func TestFIFO_AccessAndUpdateNeverReorder(t *testing.T) {
	h := &mockHooks{}
	p := New[string, int]().New(h)

	n := &testNode{k: "a", v: 1}
	p.OnAdmit(n)
	p.OnAccess(n)
	p.OnUpdate(n)

	if h.pushFrontCnt != 1 {
		t.Fatalf("expected exactly one PushFront from admission, got %d", h.pushFrontCnt)
	}
	if h.moveToFrontCnt != 0 {
		t.Fatalf("FIFO must never promote on access or update, got %d MoveToFront calls", h.moveToFrontCnt)
	}
}

func TestFIFO_SelectVictimIsOldest(t *testing.T) {
	victim := &testNode{k: "oldest", v: 0}
	h := &mockHooks{backVal: victim}
	p := New[string, int]().New(h)

	if got := p.SelectVictim(); got != victim {
		t.Fatalf("expected the tail (oldest insert) as victim")
	}
}
