package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// publishOutcomes counts finished publish invocations by resulting status
	// (posted, failed, not_connected, skipped).
	publishOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_publish_total",
			Help: "Publish invocations by outcome.",
		},
		[]string{"outcome"},
	)

	// strategyAttempts counts create-post attempts by protocol and result
	// (success, transient, rejected).
	strategyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_create_attempts_total",
			Help: "Create-post attempts by protocol and result.",
		},
		[]string{"protocol", "result"},
	)

	// assetUploads counts asset uploads by result (ok or an upload reason).
	assetUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_asset_uploads_total",
			Help: "Asset uploads by result.",
		},
		[]string{"result"},
	)

	// mediaDegraded counts publishes that lost all media and went out as text.
	mediaDegraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "publisher_media_degraded_total",
			Help: "Publishes that degraded to text-only because no asset uploaded.",
		},
	)

	// reconcileRecords counts reconciled records by table and result.
	reconcileRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_reconcile_records_total",
			Help: "Engagement reconciliation writes by record kind and result.",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	prometheus.MustRegister(publishOutcomes, strategyAttempts, assetUploads, mediaDegraded, reconcileRecords)
}
