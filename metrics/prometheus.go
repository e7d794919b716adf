// Package metrics exports identity counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-identity"
)

// Prometheus implements identity.Metrics.
type Prometheus struct {
	validations *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
}

// New registers the identity collectors on reg under namespace.
// A nil reg registers on a fresh registry.
func New(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "identity"
	}
	factory := promauto.With(reg)

	return &Prometheus{
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Bearer token validations by outcome.",
		}, []string{"outcome"}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Provider identity resolutions by outcome.",
		}, []string{"outcome"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_refreshes_total",
			Help:      "Detached session refreshes by result.",
		}, []string{"result"}),
	}
}

// ValidationOutcome implements identity.Metrics.
func (p *Prometheus) ValidationOutcome(outcome string) {
	p.validations.WithLabelValues(outcome).Inc()
}

// ResolutionOutcome implements identity.Metrics.
func (p *Prometheus) ResolutionOutcome(outcome string) {
	p.resolutions.WithLabelValues(outcome).Inc()
}

// SessionRefreshed implements identity.Metrics.
func (p *Prometheus) SessionRefreshed(err error) {
	if err != nil {
		p.refreshes.WithLabelValues("failure").Inc()
		return
	}
	p.refreshes.WithLabelValues("success").Inc()
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ identity.Metrics = (*Prometheus)(nil)
