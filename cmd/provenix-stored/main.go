package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/provenix-dev/provenix-store/internal/api"
	"github.com/provenix-dev/provenix-store/internal/auth"
	"github.com/provenix-dev/provenix-store/internal/config"
	"github.com/provenix-dev/provenix-store/internal/server"
	"github.com/provenix-dev/provenix-store/internal/service"
	"github.com/provenix-dev/provenix-store/internal/store"
	"github.com/provenix-dev/provenix-store/internal/vault"
)

func main() {
	fmt.Println("Starting Provenix Store Daemon...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Open the database and apply the schema.
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	logger.Info("database ready", "driver", db.Driver())

	// 2. Wire the service and the HTTP surface.
	tokens := auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenExpiry)
	svc := service.New(db, tokens, logger)
	h := api.NewHandler(svc, logger)
	srv := server.New(h, tokens, logger)

	// 3. Setup TLS.
	if !cfg.DisableTLS {
		fmt.Println("Generating self-signed certificate for internal TLS...")
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			log.Fatalf("Failed to generate TLS certificate: %v", err)
		}
		srv.SetCertificate(cert)
		fmt.Println("TLS encryption enabled.")
	} else {
		fmt.Println("TLS encryption disabled (PROVENIX_DISABLE_TLS=true).")
	}

	// 4. Handle graceful shutdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutdown signal received. Draining connections...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	// 5. Serve until stopped.
	fmt.Printf("Provenix Store listening on :%s\n", cfg.HTTPPort)
	if err := srv.Listen(cfg.HTTPPort); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
	fmt.Println("Shutdown complete. Exiting.")
}
