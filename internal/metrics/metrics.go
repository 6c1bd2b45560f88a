// Package metrics exposes Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	uploads         *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	fetches         *prometheus.CounterVec
	connectAttempts *prometheus.CounterVec
}

// New registers the pipeline collectors with reg. Collectors that are already
// registered are reused, so New may be called more than once per registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "uploads_total",
			Help:      "Upload attempts by source and outcome (ok or error kind).",
		}, []string{"source", "outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "upload_bytes_total",
			Help:      "Bytes written to the storage backend.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "fetch_total",
			Help:      "Remote fetches by outcome.",
		}, []string{"outcome"}),
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Subsystem: "storage",
			Name:      "connect_attempts_total",
			Help:      "Storage connection attempts by outcome (ok, auth, transient).",
		}, []string{"outcome"}),
	}

	var err error
	if m.uploads, err = registerVec(reg, m.uploads); err != nil {
		return nil, err
	}
	if m.fetches, err = registerVec(reg, m.fetches); err != nil {
		return nil, err
	}
	if m.connectAttempts, err = registerVec(reg, m.connectAttempts); err != nil {
		return nil, err
	}
	if err := reg.Register(m.uploadBytes); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		m.uploadBytes = already.ExistingCollector.(prometheus.Counter)
	}
	return m, nil
}

func registerVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return vec, nil
}

// ObserveUpload records one upload attempt.
func (m *Metrics) ObserveUpload(source, outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(source, outcome).Inc()
	if outcome == "ok" && bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}

// ObserveFetch records one remote fetch.
func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

// ObserveConnectAttempt records one storage connection attempt.
func (m *Metrics) ObserveConnectAttempt(outcome string) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(outcome).Inc()
}
