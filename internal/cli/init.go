// Package cli holds the initialization steps shared by the salarybook
// binaries: env loading, logging, config, and the storage backend.
package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"salarybook/internal/config"
	applog "salarybook/internal/log"
	"salarybook/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds a component-tagged logger and installs it as the
// process default.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{Component: component})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured storage backend.
// Returns the store or exits the process on failure.
func OpenStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) storage.Store {
	store, err := storage.Open(ctx, storage.Config{
		Type:         storage.BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		PostgresDSN:  cfg.PostgresDSN,
	}, logger.WithComponent(applog.ComponentStorage).Logger)
	if err != nil {
		logger.Error("Failed to open storage backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return store
}
