package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dpo-global/issuance-backend/api/routes"
	"github.com/dpo-global/issuance-backend/internal/csd"
	"github.com/dpo-global/issuance-backend/internal/ingest"
	"github.com/dpo-global/issuance-backend/internal/issuance"
	"github.com/dpo-global/issuance-backend/internal/reconciliation"
	"github.com/dpo-global/issuance-backend/pkg/bigquery"
	"github.com/dpo-global/issuance-backend/pkg/config"
	"github.com/dpo-global/issuance-backend/pkg/db"
	"github.com/dpo-global/issuance-backend/pkg/env"
	"github.com/dpo-global/issuance-backend/pkg/instance"
	"github.com/dpo-global/issuance-backend/pkg/logger"
	"github.com/dpo-global/issuance-backend/pkg/metrics"
	"github.com/dpo-global/issuance-backend/pkg/migrate"
	"github.com/dpo-global/issuance-backend/pkg/redis"
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

	dispatcher, err := ingest.NewDispatcher(issuance.NewRepository(dbClient.DB()), logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create event dispatcher", err)
		os.Exit(1)
	}

	engine, err := reconciliation.NewEngine(reconciliation.EngineParams{
		Verifiers:     csd.NewRegistry(cfg.CSD),
		VerifyTimeout: cfg.Reconciliation.VerifyTimeout,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create verification engine", err)
		os.Exit(1)
	}

	serviceParams := reconciliation.ServiceParams{
		Repository: reconciliation.NewRepository(dbClient.DB()),
		Engine:     engine,
		Metrics:    metrics.NewReconciliationMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	}
	if !cfg.BigQuery.DisableReconcileExports {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery", err)
			}
		}()
		serviceParams.Audit = bqClient
		serviceParams.AuditTable = cfg.BigQuery.ReconciliationTable
	}

	reconciliationService, err := reconciliation.NewService(serviceParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, dispatcher, reconciliationService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
