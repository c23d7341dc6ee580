package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gemvault/gemvault-backend/internal/accounts"
	"github.com/gemvault/gemvault-backend/internal/cron"
	"github.com/gemvault/gemvault-backend/internal/inventory"
	"github.com/gemvault/gemvault-backend/internal/investments"
	"github.com/gemvault/gemvault-backend/internal/ledger"
	"github.com/gemvault/gemvault-backend/internal/settlement"
	"github.com/gemvault/gemvault-backend/pkg/config"
	"github.com/gemvault/gemvault-backend/pkg/db"
	"github.com/gemvault/gemvault-backend/pkg/logger"
	"github.com/gemvault/gemvault-backend/pkg/metrics"
	"github.com/gemvault/gemvault-backend/pkg/migrate"
	"github.com/gemvault/gemvault-backend/pkg/redis"
)

const lockKeyFormat = "gv:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	gormDB := dbClient.DB()

	accountsSvc, err := accounts.NewService(accounts.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	stockLock, err := inventory.NewLock(gormDB)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory lock", err)
		os.Exit(1)
	}

	investmentsSvc, err := investments.NewService(
		investments.NewRepository(gormDB),
		dbClient,
		stockLock,
		accountsSvc,
		ledgerSvc,
		cfg.Investment.RefundCooldown,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create investments service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(
		settlement.NewRepository(gormDB),
		dbClient,
		stockLock,
		investmentsSvc,
		accountsSvc,
		ledgerSvc,
		cfg.PayFast,
		cfg.Settlement.AbandonedOrderTTL,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	abandonedJob, err := cron.NewAbandonedOrdersJob(cron.AbandonedOrdersJobParams{
		Logger:     logg,
		Settlement: settlementSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create abandoned orders job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(abandonedJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Settlement.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
