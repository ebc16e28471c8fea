package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/upb/jobtracker/internal/shared"
)

const namespace = "jobtracker"

// Authentication outcomes used as the outcome label
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthMetrics collects authentication and identity provisioning metrics.
// A nil *AuthMetrics is valid and records nothing.
type AuthMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	provisioned prometheus.Counter
}

// NewAuthMetrics creates the auth collectors and registers them on reg
func NewAuthMetrics(reg prometheus.Registerer) (*AuthMetrics, error) {
	m := &AuthMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "requests_total",
			Help:      "Authentication attempts by provider, outcome and error code.",
		}, []string{"provider", "outcome", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "duration_seconds",
			Help:      "Time spent authenticating a request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		provisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "provisioned_total",
			Help:      "Profiles created on first contact.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.provisioned} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveAuthentication records one authentication attempt.
// Unstructured errors are counted with code "internal".
func (m *AuthMetrics) ObserveAuthentication(provider string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}

	outcome, code := OutcomeSuccess, ""
	if err != nil {
		outcome = OutcomeFailure
		code = string(shared.CodeOf(err))
		if code == "" {
			code = "internal"
		}
	}

	m.requests.WithLabelValues(provider, outcome, code).Inc()
	m.duration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// IdentityProvisioned counts a profile created on first contact
func (m *AuthMetrics) IdentityProvisioned() {
	if m == nil {
		return
	}
	m.provisioned.Inc()
}
