package lifo

import (
	"testing"

	"github.com/nullforge/corecache/policy"
)

type testNode struct {
	k string
	v int
}

func (n *testNode) Key() string         { return n.k }
func (n *testNode) Value() *int         { return &n.v }
func (n *testNode) Hash() uint64        { return 0 }
func (n *testNode) Weight() int64       { return 1 }
func (n *testNode) Frequency() uint32   { return 0 }
func (n *testNode) IncrementFrequency() {}
func (n *testNode) Sequence() uint64    { return 0 }

type mockHooks struct {
	pushFrontCnt   int
	moveToFrontCnt int
	frontVal       policy.Node[string, int]
}

func (h *mockHooks) MoveToFront(n policy.Node[string, int]) { h.moveToFrontCnt++; h.frontVal = n }
func (h *mockHooks) PushFront(n policy.Node[string, int])   { h.pushFrontCnt++; h.frontVal = n }
func (h *mockHooks) Remove(policy.Node[string, int])        {}
func (h *mockHooks) Front() policy.Node[string, int]        { return h.frontVal }
func (h *mockHooks) Back() policy.Node[string, int]         { return nil }
func (h *mockHooks) Len() int                               { return 0 }

func TestLIFO_SelectVictimIsMostRecentInsert(t *testing.T) {
	h := &mockHooks{}
	p := New[string, int]().New(h)

	a := &testNode{k: "a"}
	b := &testNode{k: "b"}
	p.OnAdmit(a)
	p.OnAdmit(b)

	if got := p.SelectVictim(); got != b {
		t.Fatalf("expected most recently inserted entry as LIFO victim")
	}
}

func TestLIFO_UpdateBecomesNextVictim(t *testing.T) {
	h := &mockHooks{}
	p := New[string, int]().New(h)

	a := &testNode{k: "a"}
	b := &testNode{k: "b"}
	p.OnAdmit(a)
	p.OnAdmit(b)
	p.OnUpdate(a) // replacing a's value makes it the newest again

	if got := p.SelectVictim(); got != a {
		t.Fatalf("expected updated entry to become the LIFO victim")
	}
}

func TestLIFO_AccessNeverReorders(t *testing.T) {
	h := &mockHooks{}
	p := New[string, int]().New(h)

	a := &testNode{k: "a"}
	p.OnAdmit(a)
	p.OnAccess(a)

	if h.moveToFrontCnt != 0 {
		t.Fatalf("LIFO must not reorder on access, got %d MoveToFront calls", h.moveToFrontCnt)
	}
}
