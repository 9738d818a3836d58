package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters the MFA backend exports.
type Metrics struct {
	CodesIssued   *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	Disables      prometheus.Counter
}

// NewMetrics registers the backend's collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CodesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tripauth_codes_issued_total",
			Help: "Verification codes issued, by purpose.",
		}, []string{"purpose"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tripauth_code_verifications_total",
			Help: "Code verification attempts, by purpose and result.",
		}, []string{"purpose", "result"}),
		Disables: factory.NewCounter(prometheus.CounterOpts{
			Name: "tripauth_mfa_disables_total",
			Help: "Successful MFA disable operations.",
		}),
	}
}
