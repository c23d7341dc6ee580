package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gemvault/gemvault-backend/api/routes"
	"github.com/gemvault/gemvault-backend/internal/accounts"
	"github.com/gemvault/gemvault-backend/internal/announcements"
	"github.com/gemvault/gemvault-backend/internal/inventory"
	"github.com/gemvault/gemvault-backend/internal/investments"
	"github.com/gemvault/gemvault-backend/internal/ledger"
	"github.com/gemvault/gemvault-backend/internal/payouts"
	"github.com/gemvault/gemvault-backend/internal/settlement"
	payfastwebhook "github.com/gemvault/gemvault-backend/internal/webhooks/payfast"
	"github.com/gemvault/gemvault-backend/pkg/config"
	"github.com/gemvault/gemvault-backend/pkg/db"
	"github.com/gemvault/gemvault-backend/pkg/logger"
	"github.com/gemvault/gemvault-backend/pkg/migrate"
	"github.com/gemvault/gemvault-backend/pkg/redis"
	"github.com/joho/godotenv"
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

	payoutsSvc, err := payouts.NewService(payouts.NewRepository(gormDB), dbClient, accountsSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	announcementsSvc, err := announcements.NewService(gormDB)
	if err != nil {
		logg.Error(context.Background(), "failed to create announcements service", err)
		os.Exit(1)
	}

	webhookSvc, err := payfastwebhook.NewService(settlementSvc, cfg.PayFast)
	if err != nil {
		logg.Error(context.Background(), "failed to create payfast webhook service", err)
		os.Exit(1)
	}

	readiness := routes.Pingers{
		"db":    dbClient,
		"redis": redisClient,
	}

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
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			accountsSvc,
			settlementSvc,
			investmentsSvc,
			payoutsSvc,
			ledgerSvc,
			announcementsSvc,
			webhookSvc,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
