package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	IssuancesAccepted       uint64
	IssuancesRejected       map[string]uint64
	IssuanceDurationCount   uint64
	IssuanceDurationTotalNs int64
	SoldOutFastPathHits     uint64
	CouponsCreated          uint64
	CatalogCacheHits        uint64
	CatalogCacheMisses      uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	issuancesAccepted       uint64
	issuanceDurationCount   uint64
	issuanceDurationTotalNs int64
	soldOutFastPathHits     uint64
	couponsCreated          uint64
	catalogCacheHits        uint64
	catalogCacheMisses      uint64

	mu                sync.Mutex
	issuancesRejected map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{issuancesRejected: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := make(map[string]uint64, len(m.issuancesRejected))
	for reason, count := range m.issuancesRejected {
		rejected[reason] = count
	}
	m.mu.Unlock()

	return Snapshot{
		IssuancesAccepted:       atomic.LoadUint64(&m.issuancesAccepted),
		IssuancesRejected:       rejected,
		IssuanceDurationCount:   atomic.LoadUint64(&m.issuanceDurationCount),
		IssuanceDurationTotalNs: atomic.LoadInt64(&m.issuanceDurationTotalNs),
		SoldOutFastPathHits:     atomic.LoadUint64(&m.soldOutFastPathHits),
		CouponsCreated:          atomic.LoadUint64(&m.couponsCreated),
		CatalogCacheHits:        atomic.LoadUint64(&m.catalogCacheHits),
		CatalogCacheMisses:      atomic.LoadUint64(&m.catalogCacheMisses),
	}
}

// IncIssuanceAccepted increments the accepted issuance counter.
func (m *InMemoryRecorder) IncIssuanceAccepted() {
	atomic.AddUint64(&m.issuancesAccepted, 1)
}

// IncIssuanceRejected increments the rejection counter for a reason.
func (m *InMemoryRecorder) IncIssuanceRejected(reason string) {
	m.mu.Lock()
	m.issuancesRejected[reason]++
	m.mu.Unlock()
}

// ObserveIssuanceDuration records how long an issuance decision took.
func (m *InMemoryRecorder) ObserveIssuanceDuration(duration time.Duration) {
	atomic.AddUint64(&m.issuanceDurationCount, 1)
	atomic.AddInt64(&m.issuanceDurationTotalNs, duration.Nanoseconds())
}

// IncSoldOutFastPath increments the fast-path rejection counter.
func (m *InMemoryRecorder) IncSoldOutFastPath() {
	atomic.AddUint64(&m.soldOutFastPathHits, 1)
}

// IncCouponCreated increments the coupon created counter.
func (m *InMemoryRecorder) IncCouponCreated() {
	atomic.AddUint64(&m.couponsCreated, 1)
}

// IncCatalogCacheHit increments the catalog cache hit counter.
func (m *InMemoryRecorder) IncCatalogCacheHit() {
	atomic.AddUint64(&m.catalogCacheHits, 1)
}

// IncCatalogCacheMiss increments the catalog cache miss counter.
func (m *InMemoryRecorder) IncCatalogCacheMiss() {
	atomic.AddUint64(&m.catalogCacheMisses, 1)
}
