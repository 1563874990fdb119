package store

import (
	"context"
	"errors"

	"pvtela-wallet-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across every backend implementation.
var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrTransactionConflict    = errors.New("transaction not in expected state")
	ErrLinkedAccountNotFound  = errors.New("linked account not found")
	ErrLinkedAccountLimit     = errors.New("maximum number of linked accounts reached")
)

// CreateTransactionParams contains the parameters for persisting a transaction.
type CreateTransactionParams struct {
	WalletId              string
	Type                  models.TransactionType
	Amount                decimal.Decimal
	Currency              string
	Status                models.TransactionStatus
	Description           string
	ExternalTransactionId string
}

// TransitionParams moves a transaction along the allowed-transition table.
// Description, when set, is appended to the existing description.
// ExternalTransactionId, when set, is stored on the transaction.
type TransitionParams struct {
	TransactionId         string
	To                    models.TransactionStatus
	Description           string
	ExternalTransactionId string
}

// DepositCreditParams performs the single atomic credit step shared by the
// execute and webhook channels: complete the pending deposit, credit the net
// amount, and record the fee row under its derived idempotency key.
type DepositCreditParams struct {
	TransactionId  string
	PaymentId      string
	Net            decimal.Decimal
	Fee            decimal.Decimal
	FeeExternalId  string
	Description    string
	FeeDescription string
}

// WithdrawalDebitParams performs the optimistic debit step of a withdrawal:
// debit the gross amount and record the withdrawal and fee rows, all or nothing.
type WithdrawalDebitParams struct {
	WalletId       string
	Gross          decimal.Decimal
	Fee            decimal.Decimal
	Currency       string
	Status         models.TransactionStatus
	Description    string
	FeeDescription string
}

// WithdrawalDebit is the committed outcome of a withdrawal debit.
type WithdrawalDebit struct {
	Withdrawal *models.Transaction
	FeeTx      *models.Transaction
	NewBalance decimal.Decimal
}

// CompensateWithdrawalParams reverses a debited withdrawal after a payout
// failure: restore the gross, fail the withdrawal, cancel the fee, and record
// the compensating refund under a derived idempotency key.
type CompensateWithdrawalParams struct {
	WithdrawalTxId string
	FeeTxId        string
	WalletId       string
	Gross          decimal.Decimal
	Currency       string
	Reason         string
	PayoutBatchId  string
}

// LinkedAccountParams contains the parameters for registering a linked account.
type LinkedAccountParams struct {
	UserId       string
	AccountType  models.AccountType
	Details      models.AccountDetails
	FriendlyName string
}

// LedgerStore defines the contract the orchestration layer depends on. Every
// multi-row operation is atomic and safe under concurrent invocations sharing
// one store.
type LedgerStore interface {
	// --- Wallets ---
	CreateWallet(ctx context.Context, userId string) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletId string) (*models.Wallet, error)
	GetWalletByUser(ctx context.Context, userId string) (*models.Wallet, error)
	AdjustBalance(ctx context.Context, walletId string, delta decimal.Decimal) (decimal.Decimal, error)

	// --- Transactions ---
	CreateTransaction(ctx context.Context, params CreateTransactionParams) (*models.Transaction, error)
	GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	FindTransactionByExternalId(ctx context.Context, externalId string) (*models.Transaction, error)
	TransitionTransaction(ctx context.Context, params TransitionParams) (*models.Transaction, error)
	AttachExternalId(ctx context.Context, transactionId, externalId string) error
	GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.Transaction, error)

	// --- Composite atomic operations ---
	CreditDeposit(ctx context.Context, params DepositCreditParams) (decimal.Decimal, error)
	DebitForWithdrawal(ctx context.Context, params WithdrawalDebitParams) (*WithdrawalDebit, error)
	CompensateWithdrawal(ctx context.Context, params CompensateWithdrawalParams) error

	// --- Linked accounts ---
	AddLinkedAccount(ctx context.Context, params LinkedAccountParams) (*models.LinkedAccount, error)
	GetLinkedAccount(ctx context.Context, accountId, userId string) (*models.LinkedAccount, error)
	ListLinkedAccounts(ctx context.Context, userId string) ([]models.LinkedAccount, error)
	RemoveLinkedAccount(ctx context.Context, accountId, userId string) error

	// --- Lifecycle ---
	Close()
}
