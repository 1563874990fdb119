package common

import (
	"context"
	"log"
	"strings"

	"pvtela-wallet-go/internal/api"
	"pvtela-wallet-go/internal/config"
	"pvtela-wallet-go/internal/database"
	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/paypal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

type Services struct {
	DbService     *database.Service
	WalletService *api.WalletService
	Policy        models.WalletPolicy
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	policy, err := LoadWalletPolicy(cfg.WalletPolicyFile)
	if err != nil {
		dbService.Close()
		return nil, err
	}
	zap.L().Info("Wallet policy loaded",
		zap.String("currency", policy.Currency),
		zap.String("min_top_up", policy.MinTopUp.String()),
		zap.String("max_top_up", policy.MaxTopUp.String()),
		zap.String("fee_rate", policy.FeeRate.String()))

	zap.L().Info("Loading PayPal API credentials")
	paypalCfg, err := config.LoadPayPal()
	if err != nil {
		dbService.Close()
		return nil, err
	}

	paypalService, err := paypal.NewService(paypalCfg)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	return &Services{
		DbService:     dbService,
		WalletService: api.NewWalletService(dbService, paypalService, policy),
		Policy:        policy,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without the
// payment provider. Useful for read-only operations like querying balances.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
