package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/obaidsafi51/GigStream-sub003/internal/audit"
	"github.com/obaidsafi51/GigStream-sub003/internal/backoff"
	"github.com/obaidsafi51/GigStream-sub003/internal/clients"
	"github.com/obaidsafi51/GigStream-sub003/internal/metrics"
	"github.com/obaidsafi51/GigStream-sub003/internal/middleware"
	"github.com/obaidsafi51/GigStream-sub003/internal/providers"
	"github.com/obaidsafi51/GigStream-sub003/internal/ratelimit"
	"github.com/obaidsafi51/GigStream-sub003/internal/repository"
	"github.com/obaidsafi51/GigStream-sub003/internal/services"
	"github.com/obaidsafi51/GigStream-sub003/internal/tracing"
	"github.com/obaidsafi51/GigStream-sub003/internal/workers"
	"github.com/obaidsafi51/GigStream-sub003/pkg/config"

	"github.com/gin-gonic/gin"
)

type Application struct {
	Config       *config.Config
	Engine       *gin.Engine
	Orchestrator services.Orchestrator
	DeadLetters  services.DeadLetterService
	Platforms    repository.PlatformRepository
	Ledger       repository.ClaimLedger
	Pool         *workers.Pool
	Auditor      audit.Recorder
	Logger       *slog.Logger
	RateLimiter  ratelimit.Limiter

	// TracingShutdown flushes the trace exporter; no-op when disabled.
	TracingShutdown func(context.Context) error

	history clients.HistoryProvider
	oracle  clients.VerificationOracle
	payer   clients.PaymentExecutor
}

// ApplicationOption configures the Application.
type ApplicationOption func(*Application) error

// WithHistoryProvider overrides the worker-history collaborator (tests).
func WithHistoryProvider(p clients.HistoryProvider) ApplicationOption {
	return func(app *Application) error {
		app.history = p
		return nil
	}
}

// WithVerificationOracle overrides the verification collaborator (tests).
func WithVerificationOracle(o clients.VerificationOracle) ApplicationOption {
	return func(app *Application) error {
		app.oracle = o
		return nil
	}
}

// WithPaymentExecutor overrides the payment collaborator (tests).
func WithPaymentExecutor(p clients.PaymentExecutor) ApplicationOption {
	return func(app *Application) error {
		app.payer = p
		return nil
	}
}

func NewApplication(cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	redisClient := providers.NewRedisProvider(cfg.RedisAddr, cfg.RedisPassword)
	limiter := ratelimit.NewTokenBucketLimiter(redisClient)

	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler).With("service", "gigstream", "env", cfg.Env)
	slog.SetDefault(logger)

	metrics.RegisterRedisCollector(redisClient, logger)

	tracingShutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.TracingEnabled,
		ServiceName:  "gigstream",
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
		SampleRatio:  cfg.TraceSampleRatio,
	}, logger)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:      cfg,
		Platforms:   repository.NewPlatformRepository(redisClient),
		Ledger:      repository.NewClaimLedger(redisClient, cfg.DedupeTTL()),
		Auditor:     audit.NewStreamRecorder(redisClient, logger),
		Logger:      logger,
		RateLimiter: limiter,

		TracingShutdown: tracingShutdown,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.history == nil {
		app.history = clients.NewHistoryClient(cfg.WorkerHistoryURL, cfg.WorkerHistoryAPIKey,
			time.Duration(cfg.WorkerHistoryTimeoutSeconds)*time.Second)
	}
	if app.oracle == nil {
		app.oracle = clients.NewVerificationClient(cfg.VerificationURL, cfg.VerificationAPIKey,
			time.Duration(cfg.VerificationTimeoutSeconds)*time.Second)
	}
	if app.payer == nil {
		app.payer = clients.NewPaymentClient(cfg.PaymentURL, cfg.PaymentAPIKey,
			time.Duration(cfg.PaymentTimeoutSeconds)*time.Second)
	}

	dlqRepo := repository.NewDeadLetterRepository(redisClient, time.Now)
	reviewRepo := repository.NewReviewRepository(redisClient, time.Now)
	policy := backoff.Policy{
		BaseDelay:   time.Duration(cfg.BackoffBaseSeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.BackoffMaxSeconds) * time.Second,
		MaxAttempts: cfg.MaxAttempts,
	}
	app.Orchestrator = services.NewOrchestrator(
		app.history, app.oracle, app.payer,
		dlqRepo, reviewRepo, app.Ledger,
		app.Auditor, logger, policy,
	)
	app.DeadLetters = services.NewDeadLetterService(dlqRepo, app.Ledger, app.Orchestrator, app.Auditor, logger)
	app.Pool = workers.NewPool(cfg.PoolWorkers, cfg.PoolQueueSize, logger)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware("gigstream"),
		middleware.LoggerMiddleware(logger),
	)
	app.Engine = engine

	return app, nil
}

// Start launches the background pool.
func (app *Application) Start(ctx context.Context) {
	app.Pool.Start(ctx)
}

// Shutdown drains accepted background work.
func (app *Application) Shutdown() {
	app.Pool.Shutdown()
}
