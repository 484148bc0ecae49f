package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prospector/application"
	"prospector/config"
	"prospector/database"
	"prospector/domain/interfaces"
	"prospector/infrastructure"
	"prospector/infrastructure/assets"
	"prospector/infrastructure/settlement"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting prospector economy service...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event publisher; NATS is optional in development
	var eventPublisher interfaces.EventPublisher
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		log.Println("Connecting to NATS...")
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			if cfg.Environment == "production" {
				db.Close()
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			log.Printf("NATS unavailable, events disabled: %v", err)
			natsClient = nil
			eventPublisher = infrastructure.NewNoopEventPublisher()
		} else {
			publisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
			if err := publisher.EnsureEventStream(); err != nil {
				natsClient.Close()
				db.Close()
				return fmt.Errorf("failed to ensure event stream: %w", err)
			}
			eventPublisher = publisher
			log.Println("NATS connection established successfully")
		}
	} else {
		log.Println("NATS not configured, events disabled")
		eventPublisher = infrastructure.NewNoopEventPublisher()
	}

	// Initialize unit of work factory
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	// Initialize external boundaries
	gateway := settlement.NewClient(cfg.SettlementServiceURL, cfg.SettlementAPIKey, cfg.SettlementTimeout)
	rateSource := assets.NewStaticRateSource(nil)

	// Initialize the economy core
	core := application.NewCore(uowFactory, gateway, rateSource, eventPublisher)
	log.Println("Economy core initialized successfully")

	// Start background workers
	stopSweep := application.NewPoolSweepWorker(core).Start(ctx, cfg.PoolSweepHour)
	stopReconciliation := application.NewReconciliationWorker(core).Start(ctx, time.Minute)

	// Start the metrics endpoint
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Printf("Metrics endpoint listening on %s", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Wait for context cancellation
	log.Printf("Service is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down service...")

	stopSweep()
	stopReconciliation()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down metrics server: %v", err)
		}
		cancel()
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	db.Close()

	log.Println("Shutdown complete")
	return nil
}
