package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's current balance. One wallet per user, created lazily.
type Wallet struct {
	Id        string          `db:"id"`
	UserId    string          `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	Version   int64           `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Transaction is an immutable-once-terminal record explaining a balance change.
type Transaction struct {
	Id                    string            `db:"id"`
	WalletId              string            `db:"wallet_id"`
	Type                  TransactionType   `db:"type"`
	Amount                decimal.Decimal   `db:"amount"`
	Currency              string            `db:"currency"`
	Status                TransactionStatus `db:"status"`
	Description           string            `db:"description"`
	ExternalTransactionId string            `db:"external_transaction_id"`
	CreatedAt             time.Time         `db:"created_at"`
	UpdatedAt             time.Time         `db:"updated_at"`
}

// BankDetails is the bank variant of a linked account payload.
type BankDetails struct {
	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
}

// PayPalDetails is the PayPal variant of a linked account payload.
type PayPalDetails struct {
	Email string `json:"paypal_email"`
}

// AccountDetails is a closed tagged variant: exactly one of Bank or PayPal is
// set, matching the account type. Validated at creation time so downstream
// code never branches on unexpected shapes.
type AccountDetails struct {
	Bank   *BankDetails   `json:"bank,omitempty"`
	PayPal *PayPalDetails `json:"paypal,omitempty"`
}

// LinkedAccount is a user-registered external withdrawal destination.
// Read-only input to withdrawal validation; never mutated by the ledger.
type LinkedAccount struct {
	Id           string         `db:"id"`
	UserId       string         `db:"user_id"`
	AccountType  AccountType    `db:"account_type"`
	Details      AccountDetails `db:"details"`
	FriendlyName string         `db:"friendly_name"`
	IsVerified   bool           `db:"is_verified"`
	CreatedAt    time.Time      `db:"created_at"`
}
