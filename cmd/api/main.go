package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/YuniorRivera/remesas-haiti-backend/api/routes"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/agents"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/events"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/ledger"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/payouts"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/reconciliation"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/transactions"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/config"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/metrics"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/migrate"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	accounts, err := ledger.ResolveAccounts(context.Background(), ledgerRepo, cfg.Ledger)
	if err != nil {
		// An unprovisioned ledger only disables settlement postings;
		// anything else at boot is fatal.
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logg.Error(context.Background(), "failed to resolve ledger accounts", err)
			os.Exit(1)
		}
		logg.Warn(context.Background(), "ledger accounts not provisioned, settlement postings disabled")
		accounts = nil
	}

	registry := prometheus.NewRegistry()
	payoutMetrics := metrics.NewPayoutMetrics(registry)
	reconciliationMetrics := metrics.NewReconciliationMetrics(registry)

	transactionRepo := transactions.NewRepository(dbClient.DB())
	eventService := events.NewService(events.ServiceParams{
		Repo: events.NewRepository(dbClient.DB()),
	})
	ledgerService := ledger.NewService(ledger.ServiceParams{
		Repo:     ledgerRepo,
		Accounts: accounts,
	})

	reconciliationService := reconciliation.NewService(reconciliation.ServiceParams{
		Repo:            reconciliation.NewRepository(dbClient.DB()),
		TransactionRepo: transactionRepo,
		Events:          eventService,
		Tx:              dbClient,
		Logger:          logg,
		Metrics:         reconciliationMetrics,
	})

	payoutService := payouts.NewService(payouts.ServiceParams{
		TransactionRepo: transactionRepo,
		AgentRepo:       agents.NewRepository(dbClient.DB()),
		Events:          eventService,
		Ledger:          ledgerService,
		Tx:              dbClient,
		Logger:          logg,
		Metrics:         payoutMetrics,
		Flags:           cfg.FeatureFlags,
	})

	payoutGuard := payouts.NewIdempotencyGuard(redisClient, cfg.PayoutWebhook.IdempotencyTTL)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			Reconciliations: reconciliationService,
			Payouts:         payoutService,
			PayoutGuard:     payoutGuard,
			TransactionRepo: transactionRepo,
			Events:          eventService,
			Metrics:         registry,
		}),
		ReadHeaderTimeout: cfg.App.RequestTimeout,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
