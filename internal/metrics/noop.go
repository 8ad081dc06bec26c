package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncIssuanceAccepted is a no-op.
func (n *NoopRecorder) IncIssuanceAccepted() {}

// IncIssuanceRejected is a no-op.
func (n *NoopRecorder) IncIssuanceRejected(reason string) {}

// ObserveIssuanceDuration is a no-op.
func (n *NoopRecorder) ObserveIssuanceDuration(duration time.Duration) {}

// IncSoldOutFastPath is a no-op.
func (n *NoopRecorder) IncSoldOutFastPath() {}

// IncCouponCreated is a no-op.
func (n *NoopRecorder) IncCouponCreated() {}

// IncCatalogCacheHit is a no-op.
func (n *NoopRecorder) IncCatalogCacheHit() {}

// IncCatalogCacheMiss is a no-op.
func (n *NoopRecorder) IncCatalogCacheMiss() {}
