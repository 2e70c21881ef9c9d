package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authorize and token endpoints.
type Metrics struct {
	CodesIssued    prometheus.Counter
	TokensIssued   prometheus.Counter
	ProtocolErrors *prometheus.CounterVec
}

// New registers OIDC metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CodesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "lokal_oidc_authorization_codes_issued_total",
			Help: "Authorization codes issued",
		}),
		TokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "lokal_oidc_tokens_issued_total",
			Help: "Access tokens issued",
		}),
		ProtocolErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lokal_oidc_errors_total",
			Help: "OAuth error responses by endpoint and error code",
		}, []string{"endpoint", "error"}),
	}
}

func (m *Metrics) IncrementCodesIssued() {
	if m != nil {
		m.CodesIssued.Inc()
	}
}

func (m *Metrics) IncrementTokensIssued() {
	if m != nil {
		m.TokensIssued.Inc()
	}
}

func (m *Metrics) IncrementError(endpoint, code string) {
	if m != nil {
		m.ProtocolErrors.WithLabelValues(endpoint, code).Inc()
	}
}
