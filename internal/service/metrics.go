package service

import "github.com/pkordes/dumper-shop/backend/internal/saga"

// Metrics receives the counters the services emit.
// *metrics.Metrics satisfies it.
type Metrics interface {
	saga.Recorder
	Allocation(outcome string)
	StoreCache(result string)
}

// Allocation outcomes.
const (
	AllocationReused  = "reused"
	AllocationCreated = "created"
)

// Store cache results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

type noopMetrics struct{}

func (noopMetrics) SagaRun(string, bool)                  {}
func (noopMetrics) SagaCompensation(string, string, bool) {}
func (noopMetrics) Allocation(string)                     {}
func (noopMetrics) StoreCache(string)                     {}
