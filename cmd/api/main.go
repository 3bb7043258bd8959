package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/outbox"
	"storefront-checkout/internal/repository"
	"storefront-checkout/internal/server"
	"storefront-checkout/internal/service"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	log.Info("starting storefront checkout", slog.String("env", cfg.Environment.Name))

	db, err := client.InitDBClient(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := client.Migrate(db); err != nil {
		log.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	paymentClient := client.NewPaymentClient(&cfg.Payment)

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	fulfillmentRepo := repository.NewFulfillmentEventRepository(db)

	if err := productRepo.Seed(context.Background()); err != nil {
		log.Error("failed to seed catalog", slog.Any("error", err))
		os.Exit(1)
	}

	ledger := service.NewLedgerService(log, db, m, productRepo, orderRepo, fulfillmentRepo)
	checkoutService := service.NewCheckoutService(log, ledger, paymentClient, m, cfg.BaseURL)
	reconcileService := service.NewReconcileService(log, ledger, paymentClient, webhookEventRepo, m, cfg.Payment)
	catalogService := service.NewCatalogService(productRepo)

	var publisher outbox.Publisher = outbox.NewLogPublisher(log)
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		publisher = outbox.NewKafkaPublisher(brokers, cfg.Kafka.Topic)
		log.Info("publishing fulfillment events to kafka", slog.String("topic", cfg.Kafka.Topic))
	}
	dispatcher := outbox.NewDispatcher(log, fulfillmentRepo, publisher, cfg.Outbox)
	sweeper := service.NewSweeper(log, ledger, cfg.Sweep)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		dispatcher.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		sweeper.Run(workerCtx)
	}()

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(log, cfg, checkoutService, reconcileService, catalogService, ledger, reg)

	log.Info("starting HTTP server", slog.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", slog.Any("error", err))
	}

	stopWorkers()
	workers.Wait()

	if err := publisher.Close(); err != nil {
		log.Warn("close fulfillment publisher", slog.Any("error", err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("shutdown complete")
}
