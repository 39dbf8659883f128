// Package metrics provides observability for the authorization pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline denials and cross-tenant activity.
type Metrics struct {
	Denials     *prometheus.CounterVec
	CrossTenant prometheus.Counter
}

// New creates a Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "brokergate_authz_denials_total",
			Help: "Requests rejected by the authorization pipeline, by error code",
		}, []string{"code"}),
		CrossTenant: promauto.NewCounter(prometheus.CounterOpts{
			Name: "brokergate_authz_cross_tenant_requests_total",
			Help: "Requests where a privileged caller operated outside its home tenant",
		}),
	}
}

// IncrementDenial records a pipeline rejection.
func (m *Metrics) IncrementDenial(code string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(code).Inc()
}

// IncrementCrossTenant records a privileged cross-tenant request.
func (m *Metrics) IncrementCrossTenant() {
	if m == nil {
		return
	}
	m.CrossTenant.Inc()
}
