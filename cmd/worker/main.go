package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/hearthledger/hearthledger/internal/app"
	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/category"
	"github.com/hearthledger/hearthledger/internal/household"
	"github.com/hearthledger/hearthledger/internal/ledger"
	jobmetrics "github.com/hearthledger/hearthledger/internal/jobs"
	"github.com/hearthledger/hearthledger/internal/platform/cache"
	"github.com/hearthledger/hearthledger/internal/platform/db"
	"github.com/hearthledger/hearthledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, jobs run uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	budgetCache := budget.NewCache(redisClient, cfg.BudgetCacheTTL)

	categoryRepo := category.NewRepository(pool)
	categoryService := category.NewService(categoryRepo, budgetCache)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, budgetCache, logger)

	householdRepo := household.NewRepository(pool)
	householdService := household.NewService(householdRepo, categoryService, budgetCache, logger)

	budgetRepo := budget.NewRepository(pool)
	budgetService := budget.NewService(
		budgetRepo,
		ledgerService,
		categoryService,
		householdService,
		budgetCache,
		logger,
		budget.ServiceConfig{RolloverLookback: cfg.RolloverLookback},
	)

	metrics := jobmetrics.NewMetrics(nil)

	recurringJob := jobs.NewRecurringInstanceJob(ledgerService, logger, metrics)
	auditJob := jobs.NewReadyToAssignAuditJob(budgetService, householdService, logger, metrics)
	warmupJob := jobs.NewBudgetWarmupJob(budgetService, householdService, logger, metrics)

	recurringTask, err := jobs.NewRecurringInstanceTask(jobs.RecurringInstancePayload{})
	if err != nil {
		logger.Error("build recurring task", slog.Any("error", err))
		os.Exit(1)
	}
	auditTask, err := jobs.NewReadyToAssignAuditTask(jobs.ReadyToAssignAuditPayload{})
	if err != nil {
		logger.Error("build audit task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewBudgetWarmupTask(jobs.BudgetWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRecurringInstance, Handler: recurringJob.Handle},
			{Type: jobs.TaskReadyToAssignAudit, Handler: auditJob.Handle},
			{Type: jobs.TaskBudgetWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "5 0 * * *", Task: recurringTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(10 * time.Minute)}},
			{Spec: "30 1 * * *", Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
