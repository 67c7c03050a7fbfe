package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/coverline/claimlens/internal/config"
	"github.com/coverline/claimlens/internal/core/coverage"
	"github.com/coverline/claimlens/internal/core/ports"
	"github.com/coverline/claimlens/internal/core/usecase"
	"github.com/coverline/claimlens/internal/infrastructure/analysiscache"
	"github.com/coverline/claimlens/internal/infrastructure/extractor/pdftext"
	"github.com/coverline/claimlens/internal/infrastructure/llm/openai"
	"github.com/coverline/claimlens/internal/infrastructure/queue/nats"
	"github.com/coverline/claimlens/internal/infrastructure/repository/postgres"
	"github.com/coverline/claimlens/internal/infrastructure/resilience"
	"github.com/coverline/claimlens/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue    ports.AnalysisQueue
	Repo     ports.ClaimRepository
	Intake   ports.ClaimIntake
	Analyzer ports.ClaimAnalyzer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewClaimRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	// Each outbound dependency keeps its own breaker so an OpenAI outage
	// cannot open the NATS circuit, and vice versa.
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm, err := openai.NewExtractor(openai.Options{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		RPS:         cfg.OpenAIRPS,
		MaxDocChars: cfg.OpenAIMaxDocChars,
		Executor:    resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init openai extractor: %w", err)
	}

	var analyzer ports.FindingExtractor = llm
	if cfg.AnalysisCacheTTLMinutes > 0 {
		ttl := time.Duration(cfg.AnalysisCacheTTLMinutes) * time.Minute
		analyzer = analysiscache.New(llm, cfg.OpenAIModel, ttl)
	}

	pdfExtractor := pdftext.NewExtractor(storage)

	intakeUC := usecase.NewClaimIntakeUseCase(repo, storage, queue, cfg.MaxUploadBytes)
	analyzeUC := usecase.NewAnalyzeClaimUseCase(repo, pdfExtractor, analyzer, coverage.Config{
		RedFlagThreshold:    cfg.RedFlagThreshold,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}, cfg.OpenAIModel)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		Intake:   intakeUC,
		Analyzer: analyzeUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
