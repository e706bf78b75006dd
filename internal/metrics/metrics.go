package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported by the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	SessionsCreated *prometheus.CounterVec
	Claims          *prometheus.CounterVec
	ClaimRaces      prometheus.Counter
	JoinTimeouts    prometheus.Counter
	Guesses         *prometheus.CounterVec
	GamesFinished   *prometheus.CounterVec
	SweptSessions   prometheus.Counter
	PendingWaiters  prometheus.Gauge
	RequestLatency  *prometheus.HistogramVec
}

// NewMetrics builds and registers the collectors on reg. A nil reg uses the
// default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		SessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created, by mode and pairing kind",
		}, []string{"mode", "kind"}),
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Successful second-player claims, by pairing path",
		}, []string{"path"}),
		ClaimRaces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_races_lost_total",
			Help:      "Conditional claims lost to a concurrent caller",
		}),
		JoinTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_timeouts_total",
			Help:      "Blocking queue joins that expired without an opponent",
		}),
		Guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guesses_total",
			Help:      "Guess submissions, by outcome",
		}, []string{"outcome"}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Sessions that reached a terminal status",
		}, []string{"status"}),
		SweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_sessions_total",
			Help:      "Stale pending sessions cancelled by housekeeping",
		}),
		PendingWaiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_waiters",
			Help:      "Callers currently blocked waiting for an opponent",
		}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"route", "code"}),
	}
	reg.MustRegister(
		m.SessionsCreated,
		m.Claims,
		m.ClaimRaces,
		m.JoinTimeouts,
		m.Guesses,
		m.GamesFinished,
		m.SweptSessions,
		m.PendingWaiters,
		m.RequestLatency,
	)
	return m
}

func (m *Metrics) SessionCreated(mode, kind string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(mode, kind).Inc()
}

func (m *Metrics) Claimed(path string) {
	if m == nil {
		return
	}
	m.Claims.WithLabelValues(path).Inc()
}

func (m *Metrics) RaceLost() {
	if m == nil {
		return
	}
	m.ClaimRaces.Inc()
}

func (m *Metrics) JoinTimedOut() {
	if m == nil {
		return
	}
	m.JoinTimeouts.Inc()
}

func (m *Metrics) Guess(outcome string) {
	if m == nil {
		return
	}
	m.Guesses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Finished(status string) {
	if m == nil {
		return
	}
	m.GamesFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SweptSessions.Add(float64(n))
}

// WaiterStarted increments the waiter gauge and returns its decrement.
func (m *Metrics) WaiterStarted() func() {
	if m == nil {
		return func() {}
	}
	m.PendingWaiters.Inc()
	return m.PendingWaiters.Dec
}

func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, codeLabel(code)).Observe(d.Seconds())
}

func codeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
