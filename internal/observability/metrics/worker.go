package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	claimProcessTotal    *prometheus.CounterVec
	claimProcessDuration *prometheus.HistogramVec
	claimProcessInFlight prometheus.Gauge
	recommendationsTotal *prometheus.CounterVec
	riskScore            *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	claimProcessTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimlens",
			Subsystem: "worker",
			Name:      "claim_process_total",
			Help:      "Total analyzed claims by status.",
		},
		[]string{"service", "status"},
	)
	claimProcessDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claimlens",
			Subsystem: "worker",
			Name:      "claim_process_duration_seconds",
			Help:      "Claim analysis duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	claimProcessInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "claimlens",
			Subsystem: "worker",
			Name:      "claim_process_in_flight",
			Help:      "Number of in-flight claim analyses.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recommendationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimlens",
			Subsystem: "worker",
			Name:      "recommendations_total",
			Help:      "Total assessments produced, by recommendation.",
		},
		[]string{"service", "recommendation"},
	)
	riskScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claimlens",
			Subsystem: "worker",
			Name:      "risk_score",
			Help:      "Distribution of computed risk scores.",
			Buckets:   []float64{0, 5, 10, 20, 40, 60, 80, 100},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		claimProcessTotal,
		claimProcessDuration,
		claimProcessInFlight,
		recommendationsTotal,
		riskScore,
	)

	return &WorkerMetrics{
		registry:             registry,
		service:              service,
		claimProcessTotal:    claimProcessTotal,
		claimProcessDuration: claimProcessDuration,
		claimProcessInFlight: claimProcessInFlight,
		recommendationsTotal: recommendationsTotal,
		riskScore:            riskScore,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartClaim() {
	m.claimProcessInFlight.Inc()
}

func (m *WorkerMetrics) FinishClaim(duration time.Duration, err error) {
	m.claimProcessInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.claimProcessTotal.WithLabelValues(m.service, status).Inc()
	m.claimProcessDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordAssessment(recommendation string, riskScore int) {
	if recommendation == "" {
		recommendation = "unknown"
	}
	m.recommendationsTotal.WithLabelValues(m.service, recommendation).Inc()
	m.riskScore.WithLabelValues(m.service).Observe(float64(riskScore))
}
