// Package prom exports cache statistics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chanido/blitzcache-sub003/cache"
)

// Adapter implements cache.StatisticsSink and exports Prometheus
// counters/gauges/histograms. Safe for concurrent use; all Prometheus metric
// types are goroutine-safe.
type Adapter struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evicts    *prometheus.CounterVec
	entries   prometheus.Gauge
	queryDur  prometheus.Histogram
	entrySize prometheus.Histogram
}

// New constructs a Prometheus sink adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
		queryDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "query_duration_seconds",
			Help:        "Factory invocation durations",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
		entrySize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "entry_size_bytes",
			Help:        "Approximate size of stored values",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.entries, a.queryDur, a.entrySize)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit(string) { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss(string) { a.misses.Inc() }

// Eviction increments the eviction counter with a reason label and drops
// the entry gauge.
func (a *Adapter) Eviction(_ string, r cache.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
	a.entries.Dec()
}

// SetOrUpdate observes the stored value's size and bumps the entry gauge
// for inserts (replacements keep the count unchanged).
func (a *Adapter) SetOrUpdate(_ string, sizeBytes int64, existedBefore bool) {
	a.entrySize.Observe(float64(sizeBytes))
	if !existedBefore {
		a.entries.Inc()
	}
}

// QueryDuration observes one factory invocation's duration.
func (a *Adapter) QueryDuration(_ string, d time.Duration) {
	a.queryDur.Observe(d.Seconds())
}

// Reset is a no-op: Prometheus counters are monotonic, and a reset would
// surface to scrapers as a counter restart.
func (a *Adapter) Reset() {}

// reason maps cache.EvictReason to a stable label value.
func reason(r cache.EvictReason) string {
	switch r {
	case cache.EvictExpired:
		return "expired"
	case cache.EvictCapacity:
		return "capacity"
	default:
		return "removed"
	}
}

// Compile-time check: ensure Adapter implements cache.StatisticsSink.
var _ cache.StatisticsSink = (*Adapter)(nil)
