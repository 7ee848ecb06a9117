//go:build go1.18

package cache

import (
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Remove semantics under arbitrary string inputs.
// Guards against panics and ensures core invariants hold.
// NOTE: key/value lengths are capped to avoid pathological memory usage
// during fuzzing (this does not weaken the invariants checked).
func FuzzCache_PutGetRemove(f *testing.F) {
	// Seed corpus: empty, ASCII, Unicode, long strings.
	f.Add("", "")
	f.Add("a", "1")
	f.Add("b", "2")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		// Cap lengths to keep memory bounded during fuzzing.
		const limit = 1 << 12 // 4096
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c, err := NewBuilder[string, string]().WithMaximumSize(16).Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		t.Cleanup(func() { _ = c.Close() })

		// Put -> Get must return the same value.
		if err := c.Put(k, v); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, ok := c.Get(k)
		if !ok || got != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}

		// PutIfAbsent on an existing key must report existed=true and
		// leave the value unchanged.
		prev, existed, err := c.PutIfAbsent(k, "other")
		if err != nil {
			t.Fatalf("PutIfAbsent: %v", err)
		}
		if !existed {
			t.Fatalf("PutIfAbsent on existing key returned existed=false")
		}
		if prev != v {
			t.Fatalf("PutIfAbsent previous value: want %q, got %q", v, prev)
		}
		if got2, ok := c.Get(k); !ok || got2 != v {
			t.Fatalf("after no-op PutIfAbsent: want %q, got %q ok=%v", v, got2, ok)
		}

		// Remove must delete and return true once.
		if !c.Remove(k) {
			t.Fatalf("Remove must return true")
		}
		if _, ok := c.Get(k); ok {
			t.Fatalf("key must be absent after Remove")
		}

		// After removal, PutIfAbsent should succeed again.
		if _, existed, err := c.PutIfAbsent(k, v); err != nil || existed {
			t.Fatalf("PutIfAbsent after Remove must insert: existed=%v err=%v", existed, err)
		}
	})
}
