// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Issuance metrics
	IncIssuanceAccepted()
	IncIssuanceRejected(reason string) // reason: "not_found", "out_of_window", "sold_out", "quota_exceeded", "internal_error"
	ObserveIssuanceDuration(duration time.Duration)
	IncSoldOutFastPath()

	// Catalog metrics
	IncCouponCreated()
	IncCatalogCacheHit()
	IncCatalogCacheMiss()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
