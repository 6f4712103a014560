package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hearthledger/hearthledger/internal/app"
	"github.com/hearthledger/hearthledger/internal/budget"
	budgethttp "github.com/hearthledger/hearthledger/internal/budget/http"
	"github.com/hearthledger/hearthledger/internal/category"
	"github.com/hearthledger/hearthledger/internal/household"
	"github.com/hearthledger/hearthledger/internal/ledger"
	"github.com/hearthledger/hearthledger/internal/observability"
	"github.com/hearthledger/hearthledger/internal/platform/cache"
	"github.com/hearthledger/hearthledger/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if err := db.Migrate(cfg.MigrationsURL, cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, serving without cache", slog.Any("error", err))
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

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		BudgetHandler:    budgethttp.NewHandler(logger, budgetService),
		LedgerHandler:    ledger.NewHandler(logger, ledgerService),
		CategoryHandler:  category.NewHandler(logger, categoryService),
		HouseholdHandler: household.NewHandler(logger, householdService),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
