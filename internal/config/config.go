package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"pvtela-wallet-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "wallet.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		WalletPolicyFile: getEnvString("WALLET_POLICY_FILE", "policy.yaml"),
	}, nil
}

// LoadPayPal reads the provider credentials from the environment. The webhook
// id is optional at load time; webhook verification fails without it.
func LoadPayPal() (models.PayPalConfig, error) {
	cfg := models.PayPalConfig{
		Mode:         getEnvString("PAYPAL_MODE", "sandbox"),
		ClientId:     os.Getenv("PAYPAL_CLIENT_ID"),
		ClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
		WebhookId:    os.Getenv("PAYPAL_WEBHOOK_ID"),
	}

	if cfg.ClientId == "" || cfg.ClientSecret == "" {
		return models.PayPalConfig{}, fmt.Errorf(
			"missing required PayPal credentials: PAYPAL_CLIENT_ID, PAYPAL_CLIENT_SECRET")
	}
	if cfg.Mode != "sandbox" && cfg.Mode != "live" {
		return models.PayPalConfig{}, fmt.Errorf("invalid PAYPAL_MODE %q: must be sandbox or live", cfg.Mode)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
