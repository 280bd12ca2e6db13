package courtgate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtgate_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"result"},
	)

	metricAuthentications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtgate_authentications_total",
			Help: "Identity resolutions by credential source and outcome.",
		},
		[]string{"source", "result"},
	)

	metricTokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtgate_tokens_issued_total",
			Help: "Signed tokens issued by kind.",
		},
		[]string{"kind"},
	)

	metricSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtgate_sessions_total",
			Help: "Session lifecycle events.",
		},
		[]string{"event"},
	)

	metricDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtgate_denials_total",
			Help: "Denied requests by denial class.",
		},
		[]string{"class"},
	)
)

// metrics gates counter updates behind the config toggle so disabled
// deployments pay nothing past a bool check.
type metrics struct {
	enabled bool
}

func (m metrics) login(result string) {
	if m.enabled {
		metricLogins.WithLabelValues(result).Inc()
	}
}

func (m metrics) authentication(source CredentialSource, result string) {
	if m.enabled {
		metricAuthentications.WithLabelValues(string(source), result).Inc()
	}
}

func (m metrics) tokenIssued(kind string) {
	if m.enabled {
		metricTokensIssued.WithLabelValues(kind).Inc()
	}
}

func (m metrics) session(event string) {
	if m.enabled {
		metricSessions.WithLabelValues(event).Inc()
	}
}

func (m metrics) denial(class string) {
	if m.enabled {
		metricDenials.WithLabelValues(class).Inc()
	}
}
