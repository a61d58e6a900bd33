// Package cli holds the startup steps of the cards binary.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"cards/internal/backend"
	"cards/internal/config"
	applog "cards/internal/log"
)

// SetupLogger builds the logger from the configured level and format and
// installs it as the slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadAndValidateConfig reads the environment and validates the result.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitStore opens the configured backend.
func InitStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("init %s store: %w", bcfg.Type, err)
	}
	return res, nil
}
