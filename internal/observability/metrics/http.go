package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	claimsCreatedTotal     *prometheus.CounterVec
	documentsUploadedTotal *prometheus.CounterVec
	analysesRequestedTotal *prometheus.CounterVec
	reportDownloadsTotal   *prometheus.CounterVec
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimlens",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claimlens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "claimlens",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	claimsCreatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimlens",
			Subsystem: "claims",
			Name:      "created_total",
			Help:      "Total claims registered.",
		},
		[]string{"service"},
	)
	documentsUploadedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimlens",
			Subsystem: "claims",
			Name:      "documents_uploaded_total",
			Help:      "Total claim documents stored, by document type.",
		},
		[]string{"service", "doc_type"},
	)
	analysesRequestedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimlens",
			Subsystem: "claims",
			Name:      "analyses_requested_total",
			Help:      "Total coverage analyses queued.",
		},
		[]string{"service"},
	)
	reportDownloadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimlens",
			Subsystem: "claims",
			Name:      "report_downloads_total",
			Help:      "Total report downloads, by format.",
		},
		[]string{"service", "format"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		claimsCreatedTotal,
		documentsUploadedTotal,
		analysesRequestedTotal,
		reportDownloadsTotal,
	)

	return &APIMetrics{
		registry:               registry,
		service:                service,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		claimsCreatedTotal:     claimsCreatedTotal,
		documentsUploadedTotal: documentsUploadedTotal,
		analysesRequestedTotal: analysesRequestedTotal,
		reportDownloadsTotal:   reportDownloadsTotal,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses claim IDs out of the path label to keep metric
// cardinality bounded.
func normalizePath(path string) string {
	const prefix = "/v1/claims/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + "{claim_id}/" + rest[i+1:]
	}
	return prefix + "{claim_id}"
}

func (m *APIMetrics) RecordClaimCreated() {
	m.claimsCreatedTotal.WithLabelValues(m.service).Inc()
}

func (m *APIMetrics) RecordDocumentUploaded(docType string) {
	if docType == "" {
		docType = "unknown"
	}
	m.documentsUploadedTotal.WithLabelValues(m.service, docType).Inc()
}

func (m *APIMetrics) RecordAnalysisRequested() {
	m.analysesRequestedTotal.WithLabelValues(m.service).Inc()
}

func (m *APIMetrics) RecordReportDownloaded(format string) {
	if format == "" {
		format = "unknown"
	}
	m.reportDownloadsTotal.WithLabelValues(m.service, format).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
