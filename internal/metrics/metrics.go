// Package metrics defines the Prometheus collectors for the featured-products
// backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector. It satisfies service.Metrics and
// saga.Recorder.
type Metrics struct {
	sagaRuns      *prometheus.CounterVec
	compensations *prometheus.CounterVec
	allocations   *prometheus.CounterVec
	storeCache    *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// so repeated construction does not panic on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sagaRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featured",
			Name:      "saga_runs_total",
			Help:      "Total number of featured-product operations run, by outcome.",
		}, []string{"saga", "result"}),
		compensations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featured",
			Name:      "saga_compensations_total",
			Help:      "Total number of compensating actions executed, by outcome.",
		}, []string{"saga", "step", "result"}),
		allocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featured",
			Name:      "allocations_total",
			Help:      "Slot allocations, split by reuse of a free slot or creation of a new one.",
		}, []string{"outcome"}),
		storeCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featured",
			Name:      "store_cache_requests_total",
			Help:      "Storefront listing cache lookups, by result.",
		}, []string{"result"}),
	}
}

// SagaRun counts one finished saga.
func (m *Metrics) SagaRun(saga string, ok bool) {
	m.sagaRuns.WithLabelValues(saga, result(ok)).Inc()
}

// SagaCompensation counts one executed compensator.
func (m *Metrics) SagaCompensation(saga, step string, ok bool) {
	m.compensations.WithLabelValues(saga, step, result(ok)).Inc()
}

// Allocation counts one slot allocation.
func (m *Metrics) Allocation(outcome string) {
	m.allocations.WithLabelValues(outcome).Inc()
}

// StoreCache counts one cache lookup.
func (m *Metrics) StoreCache(res string) {
	m.storeCache.WithLabelValues(res).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
