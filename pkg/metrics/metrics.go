package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of requests",
		},
		[]string{"service", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	UploadsStaged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_staged_total",
			Help: "Total number of staged uploads",
		},
		[]string{"type"},
	)

	UploadsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "uploads_confirmed_total",
			Help: "Total number of confirmed uploads",
		},
	)

	PipelineResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_results_total",
			Help: "Total number of pipeline result events consumed",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UploadsStaged,
		UploadsConfirmed,
		PipelineResults,
	)
}

// StartMetricsServer runs a standalone metrics HTTP server.
func StartMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			panic("failed to start metrics server: " + err.Error())
		}
	}()
}

// RecordRequest records request counter and latency in one shot.
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}
