// Package metrics registers the Prometheus collectors of the console.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_console_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seller_console_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	objectUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_console_object_uploads_total",
			Help: "Objects written to storage, by kind",
		},
		[]string{"kind", "status"},
	)

	uploadRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seller_console_upload_rollbacks_total",
			Help: "Objects deleted while compensating a failed submission",
		},
	)

	importedProducts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_console_imported_products_total",
			Help: "Products written by bulk imports",
		},
		[]string{"status"},
	)
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordObjectUpload counts one storage write.
func RecordObjectUpload(kind string, success bool) {
	objectUploads.WithLabelValues(kind, status(success)).Inc()
}

// RecordRollback counts one compensating delete.
func RecordRollback() {
	uploadRollbacks.Inc()
}

// RecordImportedProduct counts one product insert of a bulk import.
func RecordImportedProduct(success bool) {
	importedProducts.WithLabelValues(status(success)).Inc()
}
