// Command bench runs a synthetic stampede workload against the cache and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chanido/blitzcache-sub003/cache"
	pmet "github.com/chanido/blitzcache-sub003/metrics/prom"
	"github.com/chanido/blitzcache-sub003/policy"
)

func main() {
	// ---- Flags ----
	var (
		shards   = flag.Int("shards", 0, "number of store shards (0=auto)")
		ttl      = flag.Duration("ttl", 250*time.Millisecond, "default TTL")
		maxBytes = flag.Int64("max_bytes", 0, "byte budget (0 = unbounded)")
		strategy = flag.String("strategy", "smallest", "eviction order: smallest | largest")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")

		keys     = flag.Int("keys", 100_000, "keyspace size")
		zipfS    = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV    = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		loadTime = flag.Duration("load", 2*time.Millisecond, "simulated factory latency")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	sink := pmet.New(nil, "blitz", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	opt := cache.Options[string]{
		DefaultTTL:       *ttl,
		Shards:           *shards,
		EnableStatistics: true,
		MaxBytes:         *maxBytes,
		Sink:             sink,
	}
	switch *strategy {
	case "smallest":
		// nil => SmallestFirst by default
	case "largest":
		opt.Strategy = policy.LargestFirst()
	default:
		log.Fatalf("unknown strategy: %q (use smallest or largest)", *strategy)
	}
	c := cache.New[string](opt)
	defer func() { _ = c.Close() }()

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	loadDur := *loadTime
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var total, factoryRuns uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				k := "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
				_, _ = c.Get(ctx, k, func(context.Context) (string, error) {
					atomic.AddUint64(&factoryRuns, 1)
					time.Sleep(loadDur)
					return "v:" + k, nil
				})
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	runs := atomic.LoadUint64(&factoryRuns)
	s := c.Stats()

	fmt.Printf("workers=%d keys=%d ttl=%v dur=%v seed=%d strategy=%s\n",
		workersN, *keys, *ttl, elapsed, seedBase, *strategy)
	fmt.Printf("ops=%d (%.0f ops/s)  factory-runs=%d (%.2f%% of ops)\n",
		ops, float64(ops)/elapsed.Seconds(), runs, 100*float64(runs)/float64(ops))
	fmt.Printf("hits=%d misses=%d ratio=%.4f evictions=%d entries=%d mem=%dB semaphores=%d\n",
		s.Hits, s.Misses, s.HitRatio(), s.Evictions, s.Entries, s.MemoryBytes, c.SemaphoreCount())
	for i, q := range s.TopSlowest {
		if i >= 5 {
			break
		}
		fmt.Printf("slow[%d]: %s worst=%v best=%v avg=%v n=%d\n",
			i, q.Key, q.Value.WorstCase, q.Value.BestCase, q.Value.Average, q.Value.Occurrences)
	}
}
