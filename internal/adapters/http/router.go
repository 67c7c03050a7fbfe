package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coverline/claimlens/internal/config"
	"github.com/coverline/claimlens/internal/core/ports"
	"github.com/coverline/claimlens/internal/observability/metrics"
)

// backpressureWait is how long a request may wait for an in-flight slot
// before it is shed.
const backpressureWait = 50 * time.Millisecond

type Router struct {
	cfg     config.Config
	intake  ports.ClaimIntake
	metrics *metrics.APIMetrics
}

func NewRouter(cfg config.Config, intake ports.ClaimIntake, m *metrics.APIMetrics) *Router {
	return &Router{
		cfg:     cfg,
		intake:  intake,
		metrics: m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.Handle("GET /metrics", rt.metrics.Handler())
	mux.HandleFunc("GET /v1/openapi.yaml", rt.serveOpenAPISpec)
	mux.HandleFunc("POST /v1/claims", rt.createClaim)
	mux.HandleFunc("GET /v1/claims/{id}", rt.getClaim)
	mux.HandleFunc("POST /v1/claims/{id}/documents", rt.uploadDocument)
	mux.HandleFunc("POST /v1/claims/{id}/analyze", rt.requestAnalysis)
	mux.HandleFunc("GET /v1/claims/{id}/assessment", rt.getAssessment)
	mux.HandleFunc("GET /v1/claims/{id}/report", rt.downloadReport)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = rt.metrics.Middleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
