package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the bridge's HTTP surface and
// the anti-ban domain stack: risk, hibernation, send-pipeline admission,
// reconnection, presence, and fingerprint rotation.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Send pipeline metrics (§4.6)
	SendAdmitted *prometheus.CounterVec
	SendDenied   *prometheus.CounterVec
	SendDuration prometheus.Histogram

	// Ban warning system metrics (§4.4)
	RiskScore       prometheus.Gauge
	HibernationFlag prometheus.Gauge

	// Session supervisor metrics (§4.8)
	ReconnectAttempts prometheus.Counter
	ConnectionState   *prometheus.GaugeVec

	// Presence cycler metrics (§4.9)
	PresenceCycles *prometheus.CounterVec

	// Fingerprint store metrics (§4.1)
	FingerprintRotations prometheus.Counter

	// Account-age tier metrics (the rate limiter's current tier)
	WarmupTier *prometheus.GaugeVec
}

// Config holds configuration for metrics.
type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`      // Metrics endpoint path (default: /metrics)
	Namespace string `mapstructure:"namespace"` // Prometheus namespace (default: wabridge)
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Path:      "/metrics",
		Namespace: "wabridge",
	}
}

// NewMetrics creates a new Metrics instance with all instruments registered.
func NewMetrics(cfg Config) *Metrics {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "wabridge"
	}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		SendAdmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "send_admitted_total",
				Help:      "Total number of sends admitted past all gates",
			},
			[]string{},
		),
		SendDenied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "send_denied_total",
				Help:      "Total number of sends denied, labeled by the gate that denied them",
			},
			[]string{"reason"},
		),
		SendDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "send_duration_seconds",
				Help:      "Time from pipeline entry to commit for an admitted send",
				Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21},
			},
		),

		RiskScore: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "risk_score",
				Help:      "Current ban warning risk score",
			},
		),
		HibernationFlag: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "hibernating",
				Help:      "Whether the send pipeline is currently hibernating (1) or not (0)",
			},
		),

		ReconnectAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconnect_attempts_total",
				Help:      "Total number of reconnection attempts made by the session supervisor",
			},
		),
		ConnectionState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connection_state",
				Help:      "1 for the connection state the supervisor currently reports, 0 for all others",
			},
			[]string{"state"},
		),

		PresenceCycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "presence_cycles_total",
				Help:      "Total number of presence cycle transitions, labeled by target state",
			},
			[]string{"state"},
		),

		FingerprintRotations: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fingerprint_rotations_total",
				Help:      "Total number of times the fingerprint store rotated its device identity",
			},
		),

		WarmupTier: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "warmup_tier",
				Help:      "1 for the rate limiter's current account-age tier, 0 for all others",
			},
			[]string{"tier"},
		),
	}
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// IncrementInFlight increments the in-flight request counter.
func (m *Metrics) IncrementInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight request counter.
func (m *Metrics) DecrementInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordSendAdmitted records a send that cleared every admission gate.
func (m *Metrics) RecordSendAdmitted(duration float64) {
	m.SendAdmitted.WithLabelValues().Inc()
	m.SendDuration.Observe(duration)
}

// RecordSendDenied records a send rejected with the given reason; the core
// passes the domain error code (e.g. "NOT_CONNECTED", "HIBERNATING",
// "WARMUP_LIMIT", "RATE_LIMITED"), or "protocol_error" when none is found.
func (m *Metrics) RecordSendDenied(reason string) {
	m.SendDenied.WithLabelValues(reason).Inc()
}

// SetRiskScore publishes the ban warning system's current risk score.
func (m *Metrics) SetRiskScore(score float64) {
	m.RiskScore.Set(score)
}

// SetHibernating publishes whether the pipeline is hibernating.
func (m *Metrics) SetHibernating(hibernating bool) {
	if hibernating {
		m.HibernationFlag.Set(1)
	} else {
		m.HibernationFlag.Set(0)
	}
}

// RecordReconnectAttempt records one reconnection attempt by the supervisor.
func (m *Metrics) RecordReconnectAttempt() {
	m.ReconnectAttempts.Inc()
}

// SetConnectionState publishes the supervisor's current state, zeroing the
// others so only one series reads 1 at a time.
func (m *Metrics) SetConnectionState(states []string, current string) {
	for _, s := range states {
		if s == current {
			m.ConnectionState.WithLabelValues(s).Set(1)
		} else {
			m.ConnectionState.WithLabelValues(s).Set(0)
		}
	}
}

// RecordPresenceCycle records a presence cycler transition to the given state.
func (m *Metrics) RecordPresenceCycle(state string) {
	m.PresenceCycles.WithLabelValues(state).Inc()
}

// RecordFingerprintRotation records a fingerprint store rotation.
func (m *Metrics) RecordFingerprintRotation() {
	m.FingerprintRotations.Inc()
}

// allTiers lists every rate limiter tier label for SetWarmupTier's zeroing pass.
var allTiers = []string{"FRESH", "WARMING", "MATURE"}

// SetWarmupTier publishes the rate limiter's current account-age tier.
func (m *Metrics) SetWarmupTier(tier string) {
	for _, t := range allTiers {
		if t == tier {
			m.WarmupTier.WithLabelValues(t).Set(1)
		} else {
			m.WarmupTier.WithLabelValues(t).Set(0)
		}
	}
}
