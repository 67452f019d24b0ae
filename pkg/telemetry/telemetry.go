// Package telemetry records pipeline counters and stage timings with
// Prometheus. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "foil"

// Loop outcomes for the status label.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusCached = "cached"
)

// StageBuckets spans sub-millisecond normalization up to slow batch items.
var StageBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5}

// Metrics holds every collector.
type Metrics struct {
	LoopsTotal             *prometheus.CounterVec
	FailuresTotal          *prometheus.CounterVec
	DescriptorMissingTotal *prometheus.CounterVec
	FindingsTotal          *prometheus.CounterVec
	CacheRequestsTotal     *prometheus.CounterVec
	StageSeconds           *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which tests use to read values directly.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		LoopsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loops_total",
			Help:      "Loops processed, by outcome.",
		}, []string{"status"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Structural failures, by pipeline stage.",
		}, []string{"stage"}),
		DescriptorMissingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "descriptor_missing_total",
			Help:      "Descriptors that could not be computed.",
		}, []string{"descriptor"}),
		FindingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_findings_total",
			Help:      "Loop validation findings, by severity and code.",
		}, []string{"severity", "code"}),
		CacheRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Result cache lookups, by hit or miss.",
		}, []string{"result"}),
		StageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   StageBuckets,
		}, []string{"stage"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.LoopsTotal, m.FailuresTotal, m.DescriptorMissingTotal,
		m.FindingsTotal, m.CacheRequestsTotal, m.StageSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Loop counts one processed loop.
func (m *Metrics) Loop(status string) {
	if m == nil {
		return
	}
	m.LoopsTotal.WithLabelValues(status).Inc()
}

// Failure counts a structural failure at stage.
func (m *Metrics) Failure(stage string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(stage).Inc()
}

// Missing counts descriptors that were not computed.
func (m *Metrics) Missing(names ...string) {
	if m == nil {
		return
	}
	for _, n := range names {
		m.DescriptorMissingTotal.WithLabelValues(n).Inc()
	}
}

// Finding counts one validation finding.
func (m *Metrics) Finding(severity, code string) {
	if m == nil {
		return
	}
	m.FindingsTotal.WithLabelValues(severity, code).Inc()
}

// CacheLookup counts a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// Observe records the time since start for stage.
func (m *Metrics) Observe(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
