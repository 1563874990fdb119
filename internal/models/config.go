package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Database         DatabaseConfig
	WalletPolicyFile string
}

type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// WalletPolicy carries the business parameters every ledger-affecting call
// agrees on: top-up bounds, the processing fee rate and the ledger currency.
type WalletPolicy struct {
	Currency string
	MinTopUp decimal.Decimal
	MaxTopUp decimal.Decimal
	FeeRate  decimal.Decimal
	// ReturnUrlBase is the externally reachable base for the provider's
	// approve/cancel redirects, e.g. "https://wallet.example.com".
	ReturnUrlBase string
}

// PayPalConfig holds the provider credentials loaded from the environment.
type PayPalConfig struct {
	Mode         string // "sandbox" or "live"
	ClientId     string
	ClientSecret string
	WebhookId    string
}
