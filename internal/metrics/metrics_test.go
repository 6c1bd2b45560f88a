package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveUpload("data", "ok", 5)
	m.ObserveUpload("data", "ok", 7)
	m.ObserveUpload("url", "FileFetchError", 0)
	m.ObserveFetch("ok")
	m.ObserveConnectAttempt("transient")
	m.ObserveConnectAttempt("transient")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("data", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("url", "FileFetchError")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.uploadBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectAttempts.WithLabelValues("transient")))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.ObserveFetch("ok")
	second.ObserveFetch("ok")
	assert.Equal(t, 2.0, testutil.ToFloat64(second.fetches.WithLabelValues("ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpload("data", "ok", 1)
		m.ObserveFetch("ok")
		m.ObserveConnectAttempt("ok")
	})
}
