package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/backend/cache"
	"storefront/backend/config"
	"storefront/backend/events"
	"storefront/backend/jobs"
	"storefront/backend/metrics"
	"storefront/backend/payments"
	"storefront/backend/routes"
	"storefront/backend/services"
	"storefront/backend/store"
	"storefront/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatalf("Error initializing database: %v", err)
	}
	st := store.New(db)

	var catalog services.CatalogStore = st
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Printf("Redis unavailable, serving courses from the database: %v", err)
		} else {
			defer client.Close()
			catalog = cache.NewCourseStore(st, client, cfg.CourseCacheTTL, logger)
		}
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Printf("Error closing event publisher: %v", err)
		}
	}()

	m := metrics.New()
	opts := services.Options{
		Logger:    logger,
		Publisher: publisher,
		Recorder:  m,
	}

	processor := payments.NewSimulated(cfg.PaymentLatency)
	deps := routes.Dependencies{
		DB:          db,
		Cfg:         cfg,
		Logger:      logger,
		Metrics:     m,
		Catalog:     services.NewCatalogReader(catalog, st, opts),
		Writer:      st,
		Enrollments: services.NewEnrollmentManager(catalog, st, opts),
		Payments:    services.NewPaymentConfirmer(catalog, st, processor, cfg.PaymentTimeout, opts),
	}

	reporter := jobs.NewPendingReporter(st, m, logger)
	if err := reporter.Start(cfg.PendingReportSchedule); err != nil {
		logger.Fatalf("Error starting pending report: %v", err)
	}
	defer reporter.Stop()

	app := routes.NewApp(deps)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := serve(app, ":"+cfg.ServerPort, quit, logger); err != nil {
		// Deferred cleanup still runs; exit non-zero afterwards.
		logger.Printf("Server stopped: %v", err)
		exitCode = 1
	}
}

// serve runs the app until it fails to listen or a signal arrives on quit,
// then shuts it down gracefully.
func serve(app *fiber.App, addr string, quit <-chan os.Signal, logger *log.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-quit:
	}

	logger.Println("Shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
