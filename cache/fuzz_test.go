package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// Fuzz basic Get/Update/Remove semantics under arbitrary string inputs.
// Guards against panics and ensures core invariants hold.
// NOTE: We cap key/value lengths to avoid pathological memory usage
// during fuzzing (this does not weaken the invariants we check).
func FuzzCache_GetUpdateRemove(f *testing.F) {
	// Seed corpus: empty, ASCII, Unicode, long strings.
	f.Add("", "")
	f.Add("a", "1")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12 // 4096
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c := New[string](Options[string]{SweepInterval: -1})
		t.Cleanup(func() { _ = c.Close() })
		ctx := context.Background()

		factory := func(context.Context) (string, error) { return v, nil }

		if k == "" {
			if _, err := c.Get(ctx, k, factory); !errors.Is(err, ErrEmptyKey) {
				t.Fatalf("empty key must be rejected, got %v", err)
			}
			return
		}

		// Miss -> factory result; subsequent Get is a hit with the same value.
		got, err := c.Get(ctx, k, factory)
		if err != nil || got != v {
			t.Fatalf("after miss: want %q, got %q err=%v", v, got, err)
		}
		got, err = c.Get(ctx, k, func(context.Context) (string, error) {
			t.Fatal("hit must not invoke the factory")
			return "", nil
		})
		if err != nil || got != v {
			t.Fatalf("after hit: want %q, got %q err=%v", v, got, err)
		}

		// Update must overwrite unconditionally.
		if err := c.Update(ctx, k, func(context.Context) (string, error) {
			return v + "!", nil
		}, time.Minute); err != nil {
			t.Fatalf("update: %v", err)
		}
		if got, _ := c.Get(ctx, k, factory); got != v+"!" {
			t.Fatalf("after update: want %q, got %q", v+"!", got)
		}

		// Remove must delete; a fresh Get recomputes.
		if err := c.Remove(k); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if got, _ := c.Get(ctx, k, factory); got != v {
			t.Fatalf("after remove: want %q, got %q", v, got)
		}
	})
}
