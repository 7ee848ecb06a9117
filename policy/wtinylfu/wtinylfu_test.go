package wtinylfu

import (
	"testing"

	"github.com/nullforge/corecache/policy"
	"github.com/nullforge/corecache/sketch"
)

type testNode struct {
	k    string
	v    int
	hash uint64
	freq uint32
}

func (n *testNode) Key() string         { return n.k }
func (n *testNode) Value() *int         { return &n.v }
func (n *testNode) Hash() uint64        { return n.hash }
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

func TestWTinyLFU_WindowOverflowAdmitsToProbationWhenRoom(t *testing.T) {
	sk := sketch.New(sketch.Basic, 1024)
	p := New[string, int](sk, 100).New(&mockHooks{}) // windowCap=1, mainCap=99

	a := &testNode{k: "a", hash: 1}
	b := &testNode{k: "b", hash: 2}

	p.OnAdmit(a) // fills the 1-slot window
	ev := p.OnAdmit(b) // overflow: a is pushed toward probation, room available

	if ev != nil {
		t.Fatalf("expected no eviction when probation has room, got %v", ev)
	}
}

func TestWTinyLFU_HighFrequencyCandidateWinsOverLowFrequencyVictim(t *testing.T) {
	sk := sketch.New(sketch.Basic, 1024)
	impl := New[string, int](sk, 100).(factoryImpl[string, int])
	impl.capacityHint = 2 // windowCap=1, mainCap=1 -> forces immediate contention
	p := impl.New(&mockHooks{}).(*shardPolicy[string, int])

	hot := &testNode{k: "hot", hash: 10}
	cold := &testNode{k: "cold", hash: 20}

	// Warm the sketch heavily in favor of "hot".
	for i := 0; i < 20; i++ {
		sk.Increment(hot.Hash())
	}

	// Seed probation with the cold candidate directly so main is full.
	p.probation.pushFront(cold)

	evicted := p.tryAdmitToMain(hot)
	if evicted == nil || evicted.Key() != "cold" {
		t.Fatalf("expected the cold, low-frequency probation victim to be evicted, got %v", evicted)
	}
	if !p.probation.contains("hot") {
		t.Fatalf("expected hot candidate to be admitted to probation")
	}
}

func TestWTinyLFU_ProbationHitPromotesToProtected(t *testing.T) {
	sk := sketch.New(sketch.Basic, 1024)
	p := New[string, int](sk, 1000).New(&mockHooks{}).(*shardPolicy[string, int])

	n := &testNode{k: "a", hash: 5}
	p.probation.pushFront(n)

	p.OnAccess(n)

	if !p.protected.contains("a") {
		t.Fatalf("expected probation hit to promote into protected")
	}
	if p.probation.contains("a") {
		t.Fatalf("expected node to leave probation after promotion")
	}
}

func TestWTinyLFU_SelectVictimPrefersProbation(t *testing.T) {
	sk := sketch.New(sketch.Basic, 1024)
	p := New[string, int](sk, 1000).New(&mockHooks{}).(*shardPolicy[string, int])

	w := &testNode{k: "w"}
	pr := &testNode{k: "pr"}
	p.window.pushFront(w)
	p.probation.pushFront(pr)

	if got := p.SelectVictim(); got == nil || got.Key() != "pr" {
		t.Fatalf("expected probation entry to be preferred as victim")
	}
}
