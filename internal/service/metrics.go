package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "contract_version"

// Metrics Prometheus 指标
type Metrics struct {
	IngestTotal         *prometheus.CounterVec
	VersionsCommitted   prometheus.Counter
	CompareDuration     prometheus.Histogram
	ReconstructDuration prometheus.Histogram
	ArchiveFailures     prometheus.Counter
	AuditViolations     prometheus.Gauge
}

// NewMetrics creates the service collectors and registers them on reg.
// A nil reg leaves them unregistered.
// NewMetrics 创建并注册服务指标，reg 为 nil 时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IngestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ingest_total",
			Help:      "Uploads processed, by outcome.",
		}, []string{"outcome"}),
		VersionsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "versions_committed_total",
			Help:      "Contract versions committed, including first versions.",
		}),
		CompareDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "compare_duration_seconds",
			Help:      "Clause comparison latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		ReconstructDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "reconstruct_duration_seconds",
			Help:      "Point-in-time reconstruction latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "archive_failures_total",
			Help:      "Raw upload archive writes that failed.",
		}),
		AuditViolations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "audit_violations",
			Help:      "Contracts whose version chain failed the last audit.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.IngestTotal,
			m.VersionsCommitted,
			m.CompareDuration,
			m.ReconstructDuration,
			m.ArchiveFailures,
			m.AuditViolations,
		)
	}
	return m
}
