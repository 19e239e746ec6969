// Package stats exposes the core's Prometheus counters and gauges:
// dirty-cache size, sync durations, link health, and assignment outcomes.
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry groups every collector the core registers; callers own the
// *prometheus.Registry and decide whether/how to expose it over HTTP —
// this package never starts a listener of its own.
type Registry struct {
	DirtyBytes       prometheus.Gauge
	DirtyRanges      prometheus.Gauge
	SyncDuration      prometheus.Histogram
	SyncErrors       prometheus.Counter
	ReadBytes        prometheus.Counter
	WriteBytes       prometheus.Counter
	LinksHealthy     prometheus.Gauge
	LinksUnhealthy   prometheus.Gauge
	BondsActive      prometheus.Gauge
	AssignOK         prometheus.Counter
	AssignFailed     *prometheus.CounterVec
	SolveEscalations prometheus.Counter
	LinksEvicted     prometheus.Counter
}

// New constructs and registers every collector under the "hotmesh_"
// namespace. A nil reg is allowed for tests that don't care about metrics.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		DirtyBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hotmesh", Subsystem: "hotfile", Name: "dirty_bytes",
			Help: "bytes currently buffered in the HotFile dirty map",
		}),
		DirtyRanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hotmesh", Subsystem: "hotfile", Name: "dirty_ranges",
			Help: "number of distinct ranges currently buffered",
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hotmesh", Subsystem: "hotfile", Name: "sync_duration_seconds",
			Help:    "HotFile.Sync wall time",
			Buckets: prometheus.DefBuckets,
		}),
		SyncErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotmesh", Subsystem: "hotfile", Name: "sync_errors_total",
			Help: "HotFile.Sync calls that aborted on an I/O error",
		}),
		ReadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotmesh", Subsystem: "hotfile", Name: "read_bytes_total",
			Help: "bytes returned by HotFile.Read, dirty and disk combined",
		}),
		WriteBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotmesh", Subsystem: "hotfile", Name: "write_bytes_total",
			Help: "bytes accepted by HotFile.Write",
		}),
		LinksHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hotmesh", Subsystem: "linkstate", Name: "links_healthy",
		}),
		LinksUnhealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hotmesh", Subsystem: "linkstate", Name: "links_unhealthy",
		}),
		BondsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hotmesh", Subsystem: "linkstate", Name: "bonds_active",
		}),
		AssignOK: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotmesh", Subsystem: "linkstate", Name: "assign_ok_total",
		}),
		AssignFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hotmesh", Subsystem: "linkstate", Name: "assign_failed_total",
		}, []string{"reason"}),
		SolveEscalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotmesh", Subsystem: "linkstate", Name: "solve_escalations_total",
		}),
		LinksEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotmesh", Subsystem: "linkstate", Name: "links_evicted_total",
		}),
	}
	if reg == nil {
		return r
	}
	reg.MustRegister(
		r.DirtyBytes, r.DirtyRanges, r.SyncDuration, r.SyncErrors,
		r.ReadBytes, r.WriteBytes, r.LinksHealthy, r.LinksUnhealthy,
		r.BondsActive, r.AssignOK, r.AssignFailed, r.SolveEscalations, r.LinksEvicted,
	)
	return r
}

// Timer is a tiny helper so call sites can do `defer stats.Timer(h)()`.
func Timer(h prometheus.Histogram) func() {
	start := time.Now()
	return func() { h.Observe(time.Since(start).Seconds()) }
}
