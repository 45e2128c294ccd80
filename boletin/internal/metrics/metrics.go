// CLAUDE:SUMMARY Prometheus collectors for ingestion, parsing, search and digest dispatch. A nil *Metrics is a no-op.
// Package metrics holds the Prometheus collectors shared by the service
// components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "boletin"

// Metrics groups every collector. Methods are safe on a nil receiver.
type Metrics struct {
	snapshotsUpserted *prometheus.CounterVec
	fetchErrors       *prometheus.CounterVec
	parserErrors      *prometheus.CounterVec
	searches          *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	digestsSent       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		snapshotsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_upserted_total",
			Help:      "Gazette pages stored in the archive, by source.",
		}, []string{"source"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed gazette page fetches, by source.",
		}, []string{"source"}),
		parserErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parser_errors_total",
			Help:      "Recovered parser failures, by source.",
		}, []string{"source"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches run, by mode (historical, live).",
		}, []string{"mode"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search wall time, by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"mode"}),
		digestsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_sent_total",
			Help:      "Digest emails by outcome (sent, failed).",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.snapshotsUpserted, m.fetchErrors, m.parserErrors,
			m.searches, m.searchDuration, m.digestsSent,
		)
	}
	return m
}

func (m *Metrics) SnapshotUpserted(source string) {
	if m != nil {
		m.snapshotsUpserted.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) FetchError(source string) {
	if m != nil {
		m.fetchErrors.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) ParserError(source string) {
	if m != nil {
		m.parserErrors.WithLabelValues(source).Inc()
	}
}

// SearchDone counts one search of mode and records its duration.
func (m *Metrics) SearchDone(mode string, d time.Duration) {
	if m != nil {
		m.searches.WithLabelValues(mode).Inc()
		m.searchDuration.WithLabelValues(mode).Observe(d.Seconds())
	}
}

func (m *Metrics) DigestSent(outcome string) {
	if m != nil {
		m.digestsSent.WithLabelValues(outcome).Inc()
	}
}
