// Package metrics holds the Prometheus collectors of the upload server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

type Metrics struct {
	uploads         *prometheus.CounterVec
	classified      *prometheus.CounterVec
	ocrDuration     prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	blobsCompensate prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		uploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meduploads_uploads_total",
				Help: "Upload batches by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		classified: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meduploads_files_classified_total",
				Help: "Classified images by verdict",
			},
			[]string{"result"},
		),
		ocrDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meduploads_ocr_duration_seconds",
				Help:    "Text extraction time per image",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meduploads_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meduploads_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		blobsCompensate: f.NewCounter(
			prometheus.CounterOpts{
				Name: "meduploads_compensating_deletes_total",
				Help: "Blobs removed after a failed commit",
			},
		),
	}
}

func (m *Metrics) ObserveUpload(operation, outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveClassification(medical bool) {
	if m == nil {
		return
	}
	result := "non_medical"
	if medical {
		result = "medical"
	}
	m.classified.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveOCR(d time.Duration) {
	if m == nil {
		return
	}
	m.ocrDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveCompensation(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.blobsCompensate.Add(float64(n))
}

// ObserveHTTP records one request. path must be a route template, not the raw
// URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
