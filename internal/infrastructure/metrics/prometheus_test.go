package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// NewMetrics registers every instrument against the default registerer, so
// the whole package can only call it once per test binary.
var m = NewMetrics(DefaultConfig())

func TestRecordHTTPRequestIncrementsCounterAndHistogram(t *testing.T) {
	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/status", "200"))
	m.RecordHTTPRequest("GET", "/status", "200", 0.01)
	after := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/status", "200"))
	assert.Equal(t, before+1, after)
}

func TestInFlightIncrementAndDecrement(t *testing.T) {
	m.IncrementInFlight()
	withOne := testutil.ToFloat64(m.HTTPRequestsInFlight)
	m.DecrementInFlight()
	withZero := testutil.ToFloat64(m.HTTPRequestsInFlight)
	assert.Equal(t, withOne-1, withZero)
}

func TestRecordSendAdmittedAndDenied(t *testing.T) {
	beforeAdmitted := testutil.ToFloat64(m.SendAdmitted.WithLabelValues())
	m.RecordSendAdmitted(1.5)
	assert.Equal(t, beforeAdmitted+1, testutil.ToFloat64(m.SendAdmitted.WithLabelValues()))

	beforeDenied := testutil.ToFloat64(m.SendDenied.WithLabelValues("hibernating"))
	m.RecordSendDenied("hibernating")
	assert.Equal(t, beforeDenied+1, testutil.ToFloat64(m.SendDenied.WithLabelValues("hibernating")))
}

func TestDefaultConfigUsesWabridgeNamespace(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "wabridge", cfg.Namespace)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "/metrics", cfg.Path)
}
