package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harborwell/stockroom-backend/api/controllers"
	"github.com/harborwell/stockroom-backend/api/routes"
	"github.com/harborwell/stockroom-backend/internal/fulfillment"
	"github.com/harborwell/stockroom-backend/internal/inventory"
	"github.com/harborwell/stockroom-backend/internal/projection"
	"github.com/harborwell/stockroom-backend/internal/reservation"
	"github.com/harborwell/stockroom-backend/pkg/config"
	"github.com/harborwell/stockroom-backend/pkg/db"
	"github.com/harborwell/stockroom-backend/pkg/logger"
	"github.com/harborwell/stockroom-backend/pkg/metrics"
	"github.com/harborwell/stockroom-backend/pkg/migrate"
	"github.com/harborwell/stockroom-backend/pkg/outbox"
	"github.com/harborwell/stockroom-backend/pkg/redis"
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	projector, err := projection.NewService(outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create projection service", err)
		os.Exit(1)
	}

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	itemsRepo := inventory.NewRepository(dbClient.DB())
	reservationsRepo := reservation.NewRepository(dbClient.DB())

	reservationService, err := reservation.NewService(reservation.ServiceParams{
		Repo:      reservationsRepo,
		Items:     itemsRepo,
		TxRunner:  dbClient,
		Projector: projector,
		Events:    outboxService,
		Metrics:   ledgerMetrics,
		Logger:    logg,
		HoldTTL:   cfg.Reservation.HoldTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:      itemsRepo,
		TxRunner:  dbClient,
		Projector: projector,
		Events:    outboxService,
		Metrics:   ledgerMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Reservations: reservationsRepo,
		Items:        itemsRepo,
		TxRunner:     dbClient,
		Projector:    projector,
		Events:       outboxService,
		Metrics:      ledgerMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
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
		Handler: routes.NewRouter(routes.Dependencies{
			Config:       cfg,
			Logger:       logg,
			Idempotency:  redisClient,
			Reservations: reservationService,
			Inventory:    inventoryService,
			Fulfillment:  fulfillmentService,
			Readiness: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
