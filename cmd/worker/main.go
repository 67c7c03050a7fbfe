package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coverline/claimlens/internal/bootstrap"
	"github.com/coverline/claimlens/internal/config"
	"github.com/coverline/claimlens/internal/observability/logging"
	"github.com/coverline/claimlens/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics)

	analysisTimeout := time.Duration(cfg.AnalysisTimeoutSeconds) * time.Second

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "analysis_timeout", analysisTimeout.String())
	err = app.Queue.SubscribeClaimQueued(ctx, func(handlerCtx context.Context, claimID string) error {
		analyzeCtx, cancel := context.WithTimeout(handlerCtx, analysisTimeout)
		defer cancel()

		workerMetrics.StartClaim()
		start := time.Now()
		assessment, err := app.Analyzer.AnalyzeByID(analyzeCtx, claimID)
		workerMetrics.FinishClaim(time.Since(start), err)
		if err != nil {
			return err
		}

		workerMetrics.RecordAssessment(string(assessment.Recommendation), assessment.RiskScore)
		slog.Info("claim_assessed",
			"claim_id", claimID,
			"recommendation", assessment.Recommendation,
			"risk_score", assessment.RiskScore,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics_server_shutdown_error", "error", err)
	}
}

func startMetricsServer(port string, m *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("worker_metrics_listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()

	return server
}
