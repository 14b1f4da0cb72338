// Package metrics holds the Prometheus collectors of the warehouse service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_uploads_total",
			Help: "Spreadsheet uploads by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	RowsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_rows_ingested_total",
			Help: "Rows stored from uploaded spreadsheets",
		},
		[]string{"kind"},
	)

	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_upload_duration_seconds",
			Help:    "Time taken to parse and store an upload",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// Reconciliation
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_scans_total",
			Help: "Scans reconciled against a file, by result",
		},
		[]string{"result"},
	)

	RoutesUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warehouse_routes_updated_total",
			Help: "Routing records changed by batch updates",
		},
	)

	ExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warehouse_exports_total",
			Help: "Files exported to xlsx",
		},
	)

	// HTTP
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_http_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RecaptchaChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_recaptcha_checks_total",
			Help: "Bot verification calls by outcome",
		},
		[]string{"status"},
	)
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordUpload counts one finished upload.
func RecordUpload(kind string, rows int, started time.Time, err error) {
	UploadsTotal.WithLabelValues(kind, status(err)).Inc()
	UploadDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	if err == nil {
		RowsIngested.WithLabelValues(kind).Add(float64(rows))
	}
}

func RecordRecaptcha(err error) {
	RecaptchaChecks.WithLabelValues(status(err)).Inc()
}
