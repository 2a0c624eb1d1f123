package metrics

import (
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Workbench metrics. These stay nil until first use so that test binaries
// that never enable metrics pay nothing.
var (
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	extractionsTotal        *prometheus.CounterVec
	workflowOpsTotal        *prometheus.CounterVec
	savesTotal              *prometheus.CounterVec
)

// initializeEMRMetrics initializes workbench metrics if they haven't been initialized yet
func initializeEMRMetrics() {
	if upstreamRequestsTotal != nil {
		return // Already initialized
	}

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of HTTP requests to upstream services",
		},
		[]string{"service", "endpoint", "status_code"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Time spent on HTTP requests to upstream services",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)

	extractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_extractions_total",
			Help: "Total number of OCR/ACR/NLP extraction calls",
		},
		[]string{"kind", "result"}, // result: "success", "empty", "error"
	)

	workflowOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_workflow_operations_total",
			Help: "Total number of EMR workflow operations",
		},
		[]string{"operation", "result"},
	)

	savesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emr_saves_total",
			Help: "Total number of EMR save attempts",
		},
		[]string{"result"}, // "success", "patient_update_failed", "record_create_failed"
	)

	mm := GetInstance()
	mm.registry.MustRegister(
		upstreamRequestsTotal,
		upstreamRequestDuration,
		extractionsTotal,
		workflowOpsTotal,
		savesTotal,
	)
}

func businessMetricsEnabled() bool {
	return os.Getenv("ENABLE_BUSINESS_METRICS") == "true"
}

// RecordUpstreamRequest records metrics for a request to an upstream service.
// A status code of 0 means the request never produced a response.
func RecordUpstreamRequest(service, endpoint string, startTime time.Time, statusCode int) {
	if !businessMetricsEnabled() {
		return
	}

	initializeEMRMetrics()

	duration := time.Since(startTime).Seconds()
	upstreamRequestsTotal.WithLabelValues(service, endpoint, strconv.Itoa(statusCode)).Inc()
	upstreamRequestDuration.WithLabelValues(service, endpoint).Observe(duration)
}

// RecordExtraction records the outcome of an OCR/ACR/NLP call.
func RecordExtraction(kind, result string) {
	if !businessMetricsEnabled() {
		return
	}

	initializeEMRMetrics()
	extractionsTotal.WithLabelValues(kind, result).Inc()
}

// RecordWorkflowOp records the outcome of an EMR workflow operation.
func RecordWorkflowOp(operation, result string) {
	if !businessMetricsEnabled() {
		return
	}

	initializeEMRMetrics()
	workflowOpsTotal.WithLabelValues(operation, result).Inc()
}

// RecordSave records the outcome of an EMR save attempt.
func RecordSave(result string) {
	if !businessMetricsEnabled() {
		return
	}

	initializeEMRMetrics()
	savesTotal.WithLabelValues(result).Inc()
}
