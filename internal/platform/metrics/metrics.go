package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the auth perimeter.
type Metrics struct {
	LaunchesVerified  prometheus.Counter
	LaunchesRejected  *prometheus.CounterVec
	CredentialsIssued *prometheus.CounterVec
	GateDecisions     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		LaunchesVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skillsim_launches_verified_total",
			Help: "Total number of LMS launch requests that passed verification",
		}),
		LaunchesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skillsim_launches_rejected_total",
			Help: "Total number of rejected LMS launch requests by reason class",
		}, []string{"reason"}),
		CredentialsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skillsim_credentials_issued_total",
			Help: "Total number of credentials minted by scheme",
		}, []string{"scheme"}),
		GateDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skillsim_gate_decisions_total",
			Help: "Total number of access gate decisions by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementLaunchesVerified() {
	m.LaunchesVerified.Inc()
}

func (m *Metrics) IncrementLaunchesRejected(reason string) {
	m.LaunchesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementCredentialsIssued(scheme string) {
	m.CredentialsIssued.WithLabelValues(scheme).Inc()
}

func (m *Metrics) IncrementGateDecision(outcome string) {
	m.GateDecisions.WithLabelValues(outcome).Inc()
}
