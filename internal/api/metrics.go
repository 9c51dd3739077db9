package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusSuccess   = "success"
	statusError     = "error"
	statusTruncated = "truncated"
)

// Metrics holds the codec metrics of one Server. Each Server owns its
// registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	fileBytes         *prometheus.HistogramVec
	samplesDecoded    prometheus.Counter
	rateLimited       prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		operationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ridefit_operations_total",
				Help: "Codec and archive operations by outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ridefit_operation_duration_seconds",
				Help:    "Codec and archive operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		fileBytes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ridefit_file_bytes",
				Help:    "Size of encoded or decoded FIT files",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
			[]string{"operation"},
		),
		samplesDecoded: f.NewCounter(prometheus.CounterOpts{
			Name: "ridefit_samples_decoded_total",
			Help: "Time-series samples recovered by decode requests",
		}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "ridefit_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// Record records one operation. size is the FIT file size, or 0 when unknown.
func (m *Metrics) Record(operation, status string, size int, duration time.Duration) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if size > 0 {
		m.fileBytes.WithLabelValues(operation).Observe(float64(size))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
