package sdk

import (
	"context"
	"log/slog"
	"os"

	"github.com/provenix-dev/provenix-store/internal/auth"
	"github.com/provenix-dev/provenix-store/internal/config"
	"github.com/provenix-dev/provenix-store/internal/service"
	"github.com/provenix-dev/provenix-store/internal/store"
)

// New initializes the store based on the environment.
// It returns the ProfileStore interface, so the app doesn't care whether it
// talks to a remote daemon or an embedded database.
func New() (ProfileStore, error) {
	// 1. Check if a remote store is defined in environment variables.
	if remoteAddr := os.Getenv("PROVENIX_STORE_ADDR"); remoteAddr != "" {
		return Connect(remoteAddr)
	}

	// 2. Fall back to embedded mode. This uses the same service the daemon
	// uses, but inside the app process.
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	tokens := auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenExpiry)
	return service.New(db, tokens, slog.Default()), nil
}
