package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/advox/portal-sync-worker/internal/api"
	"github.com/advox/portal-sync-worker/internal/capture"
	"github.com/advox/portal-sync-worker/internal/config"
	"github.com/advox/portal-sync-worker/internal/database"
	"github.com/advox/portal-sync-worker/internal/repository"
	"github.com/advox/portal-sync-worker/internal/service"
	"github.com/advox/portal-sync-worker/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	log.Println("Database connected successfully")

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	log.Println("Migrations completed successfully")

	// Initialize repositories
	stateRepo := repository.NewSyncStateRepository(db)
	queueRepo := repository.NewSyncQueueRepository(sqlDB)
	processoRepo := repository.NewProcessoRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	advogadoRepo := repository.NewAdvogadoRepository(db)

	// Initialize capture client
	captureClient := capture.NewClient(cfg.CaptureAPIURL, capture.Credentials{
		ClientID:     cfg.CaptureClientID,
		ClientSecret: cfg.CaptureClientSecret,
		TokenURL:     cfg.CaptureTokenURL,
	})

	// Initialize services
	processor := service.NewSyncProcessor(stateRepo, captureClient, processoRepo, auditRepo)
	syncService := service.NewSyncService(stateRepo, queueRepo, advogadoRepo, auditRepo)

	// Initialize watcher
	w := watcher.New(cfg, queueRepo, processor, stateRepo)

	// HTTP server for submissions and reads
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(syncService).Router(),
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start watcher in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	// Start HTTP server in goroutine
	go func() {
		log.Printf("HTTP server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Println("Shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}

		select {
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded")
		case err := <-errChan:
			if err != nil && err != context.Canceled {
				log.Printf("Watcher error: %v", err)
			}
		}

		log.Println("Application stopped")
		return nil

	case err := <-errChan:
		return err
	}
}
