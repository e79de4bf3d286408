package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/menuhub/menuhub"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Image metrics
	ImagesUploadedTotal  metric.Int64Counter
	ImagesDeletedTotal   metric.Int64Counter
	UploadRejectedTotal  metric.Int64Counter
	OrphanedBlobsTotal   metric.Int64Counter
	UploadBatchDuration  metric.Float64Histogram

	// Authorization metrics
	AdminRequestsTotal metric.Int64Counter
	AdminDeniedTotal   metric.Int64Counter

	// Session metrics
	SessionsCreatedTotal metric.Int64Counter
	SessionsExpiredTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.ImagesUploadedTotal, _ = meter.Int64Counter(
		"menuhub.images.uploaded.total",
		metric.WithDescription("Total number of menu images uploaded"),
		metric.WithUnit("{image}"),
	)

	m.ImagesDeletedTotal, _ = meter.Int64Counter(
		"menuhub.images.deleted.total",
		metric.WithDescription("Total number of menu images deleted"),
		metric.WithUnit("{image}"),
	)

	m.UploadRejectedTotal, _ = meter.Int64Counter(
		"menuhub.images.upload.rejected.total",
		metric.WithDescription("Total number of upload batches rejected by the quota"),
		metric.WithUnit("{batch}"),
	)

	m.OrphanedBlobsTotal, _ = meter.Int64Counter(
		"menuhub.images.orphaned.total",
		metric.WithDescription("Total number of blobs left behind by failed metadata writes"),
		metric.WithUnit("{blob}"),
	)

	m.UploadBatchDuration, _ = meter.Float64Histogram(
		"menuhub.images.upload.duration",
		metric.WithDescription("Duration of upload batches"),
		metric.WithUnit("ms"),
	)

	m.AdminRequestsTotal, _ = meter.Int64Counter(
		"menuhub.admin.requests.total",
		metric.WithDescription("Total number of requests to admin paths"),
		metric.WithUnit("{request}"),
	)

	m.AdminDeniedTotal, _ = meter.Int64Counter(
		"menuhub.admin.denied.total",
		metric.WithDescription("Total number of admin requests redirected away"),
		metric.WithUnit("{request}"),
	)

	m.SessionsCreatedTotal, _ = meter.Int64Counter(
		"menuhub.sessions.created.total",
		metric.WithDescription("Total number of sessions issued"),
		metric.WithUnit("{session}"),
	)

	m.SessionsExpiredTotal, _ = meter.Int64Counter(
		"menuhub.sessions.expired.total",
		metric.WithDescription("Total number of expired sessions removed by cleanup"),
		metric.WithUnit("{session}"),
	)

	return m
}
