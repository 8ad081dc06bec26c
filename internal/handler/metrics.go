package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/couponbox/couponbox/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "couponbox_issuances_accepted_total %d\n", snap.IssuancesAccepted)

	reasons := make([]string, 0, len(snap.IssuancesRejected))
	for reason := range snap.IssuancesRejected {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		writeMetric(w, "couponbox_issuances_rejected_total{reason=%q} %d\n", reason, snap.IssuancesRejected[reason])
	}

	writeMetric(w, "couponbox_issuance_duration_seconds_count %d\n", snap.IssuanceDurationCount)
	writeMetric(w, "couponbox_issuance_duration_seconds_sum %.6f\n", float64(snap.IssuanceDurationTotalNs)/1e9)
	writeMetric(w, "couponbox_sold_out_fast_path_total %d\n", snap.SoldOutFastPathHits)

	writeMetric(w, "couponbox_coupons_created_total %d\n", snap.CouponsCreated)
	writeMetric(w, "couponbox_catalog_cache_hits_total %d\n", snap.CatalogCacheHits)
	writeMetric(w, "couponbox_catalog_cache_misses_total %d\n", snap.CatalogCacheMisses)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
