package cache

import (
	"context"
	"strconv"
	"testing"
	"time"
)

// Hot hit path: no semaphore, one shard RLock.
func BenchmarkGet_Hit(b *testing.B) {
	c := New[string](Options[string]{SweepInterval: -1})
	b.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	factory := func(context.Context) (string, error) { return "v", nil }
	if _, err := c.Get(ctx, "k", factory); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := c.Get(ctx, "k", factory); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// Parallel hits across a spread keyspace: shard contention profile.
func BenchmarkGet_HitSpread(b *testing.B) {
	c := New[string](Options[string]{SweepInterval: -1})
	b.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	const keys = 4096
	for i := 0; i < keys; i++ {
		k := "k:" + strconv.Itoa(i)
		if err := c.Update(ctx, k, func(context.Context) (string, error) { return k, nil }, 0); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&(keys-1))
			i++
			if _, err := c.Get(ctx, k, func(context.Context) (string, error) { return k, nil }); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// Miss path including semaphore round-trip and store write.
func BenchmarkGet_Miss(b *testing.B) {
	c := New[string](Options[string]{SweepInterval: -1, DefaultTTL: time.Nanosecond})
	b.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := "k:" + strconv.Itoa(i)
		if _, err := c.Get(ctx, k, func(context.Context) (string, error) { return "v", nil }); err != nil {
			b.Fatal(err)
		}
	}
}

// Miss path with statistics enabled (sizer + trackers on the write path).
func BenchmarkGet_MissWithStats(b *testing.B) {
	c := New[string](Options[string]{SweepInterval: -1, EnableStatistics: true})
	b.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := "k:" + strconv.Itoa(i)
		if _, err := c.Get(ctx, k, func(context.Context) (string, error) { return "v", nil }); err != nil {
			b.Fatal(err)
		}
	}
}
