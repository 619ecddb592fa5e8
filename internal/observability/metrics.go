package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncOperationsTotal counts sync controller operations by table, op and outcome.
	SyncOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worklink_sync_operations_total",
		Help: "Total entity sync operations by table, operation and outcome",
	}, []string{"table", "operation", "outcome"})

	// UploadBytesTotal counts uploaded bytes by path (direct or delegated).
	UploadBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worklink_upload_bytes_total",
		Help: "Total bytes uploaded by upload path",
	}, []string{"path"})

	// UploadFailuresTotal counts failed file uploads by stage.
	UploadFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worklink_upload_failures_total",
		Help: "Total failed file uploads by pipeline stage",
	}, []string{"stage"})

	// RelayUploadLatency records delegated upload handling latency.
	RelayUploadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "worklink_relay_upload_latency_seconds",
		Help:    "Delegated upload handling latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// FeedEventsTotal counts change feed events by table.
	FeedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worklink_feed_events_total",
		Help: "Total change feed events dispatched by table",
	}, []string{"table"})
)

// TrackRelayUpload returns a function that records upload latency when
// called (e.g. defer).
func TrackRelayUpload() func() {
	start := time.Now()
	return func() {
		RelayUploadLatency.Observe(time.Since(start).Seconds())
	}
}
