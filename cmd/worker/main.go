package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/dpo-global/issuance-backend/internal/cron"
	"github.com/dpo-global/issuance-backend/internal/csd"
	"github.com/dpo-global/issuance-backend/internal/ingest"
	"github.com/dpo-global/issuance-backend/internal/issuance"
	"github.com/dpo-global/issuance-backend/internal/reconciliation"
	"github.com/dpo-global/issuance-backend/pkg/bigquery"
	"github.com/dpo-global/issuance-backend/pkg/config"
	"github.com/dpo-global/issuance-backend/pkg/db"
	"github.com/dpo-global/issuance-backend/pkg/idempotency"
	"github.com/dpo-global/issuance-backend/pkg/instance"
	"github.com/dpo-global/issuance-backend/pkg/logger"
	"github.com/dpo-global/issuance-backend/pkg/metrics"
	"github.com/dpo-global/issuance-backend/pkg/migrate"
	"github.com/dpo-global/issuance-backend/pkg/pubsub"
	"github.com/dpo-global/issuance-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database client", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	// Both stores must answer before the consumer pulls its first message.
	requireResource(ctx, logg, "database ping", awaitReady(ctx, dbClient.Ping))
	requireResource(ctx, logg, "redis ping", awaitReady(ctx, redisClient.Ping))

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.LedgerSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "ledger subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IngestIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	dispatcher, err := ingest.NewDispatcher(issuance.NewRepository(dbClient.DB()), logg, nil)
	requireResource(ctx, logg, "event dispatcher", err)

	consumer, err := ingest.NewConsumer(subscription, dispatcher, manager, logg)
	requireResource(ctx, logg, "ledger consumer", err)

	engine, err := reconciliation.NewEngine(reconciliation.EngineParams{
		Verifiers:     csd.NewRegistry(cfg.CSD),
		VerifyTimeout: cfg.Reconciliation.VerifyTimeout,
		Logger:        logg,
	})
	requireResource(ctx, logg, "verification engine", err)

	serviceParams := reconciliation.ServiceParams{
		Repository: reconciliation.NewRepository(dbClient.DB()),
		Engine:     engine,
		Metrics:    metrics.NewReconciliationMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	}
	if !cfg.BigQuery.DisableReconcileExports {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery client", err)
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(ctx, "failed to close bigquery client", err)
			}
		}()
		serviceParams.Audit = bqClient
		serviceParams.AuditTable = cfg.BigQuery.ReconciliationTable
	}

	reconciliationService, err := reconciliation.NewService(serviceParams)
	requireResource(ctx, logg, "reconciliation service", err)

	sweepJob, err := cron.NewReconciliationSweepJob(cron.ReconciliationSweepJobParams{
		Logger:        logg,
		Sweeper:       reconciliationService,
		Interval:      cfg.Reconciliation.SweepInterval,
		BatchLimit:    cfg.Reconciliation.BatchLimit,
		MaxConcurrent: cfg.Reconciliation.MaxConcurrent,
	})
	requireResource(ctx, logg, "reconciliation sweep job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	requireResource(ctx, logg, "cron lock", err)

	cronService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "worker ready")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return consumer.Run(groupCtx)
	})
	group.Go(func() error {
		return cronService.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker failed", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "worker:" + env
}

// awaitReady retries a dependency ping with exponential backoff so a
// restart does not race the stores it consumes against.
func awaitReady(ctx context.Context, ping func(context.Context) error) error {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
