package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for translation writes.
type Metrics struct {
	// Unit-of-work commits by operation and outcome
	Commits *prometheus.CounterVec
}

// New registers translation metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Commits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "lokal_translation_commits_total",
			Help: "Translation unit-of-work commits by operation and outcome",
		}, []string{"operation", "outcome"}), // outcome: "ok", "conflict", "error"
	}
}

// IncrementCommit records one commit attempt.
func (m *Metrics) IncrementCommit(operation, outcome string) {
	if m != nil {
		m.Commits.WithLabelValues(operation, outcome).Inc()
	}
}
