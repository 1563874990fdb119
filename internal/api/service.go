package api

import (
	"context"
	"errors"

	"pvtela-wallet-go/internal/gateway"
	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/store"
)

// Errors raised before any ledger mutation.
var (
	// ErrValidation marks a malformed or out-of-range request.
	ErrValidation = errors.New("validation failed")
	// ErrNotOwner marks a request against a transaction owned by another user.
	ErrNotOwner = errors.New("transaction does not belong to the requesting user")
)

// WalletService drives the deposit reconciliation and withdrawal
// orchestration flows on top of a LedgerStore and a PaymentGateway. The
// gateway never mutates the ledger; only this service interprets gateway
// results into ledger state changes.
type WalletService struct {
	db      store.LedgerStore
	gateway gateway.PaymentGateway
	policy  models.WalletPolicy
}

func NewWalletService(db store.LedgerStore, gw gateway.PaymentGateway, policy models.WalletPolicy) *WalletService {
	return &WalletService{
		db:      db,
		gateway: gw,
		policy:  policy,
	}
}

// EnsureWallet lazily creates the user's wallet; safe to call repeatedly and
// under concurrent registration races.
func (s *WalletService) EnsureWallet(ctx context.Context, userId string) (*models.Wallet, error) {
	return s.db.CreateWallet(ctx, userId)
}

// GetWallet returns the user's wallet.
func (s *WalletService) GetWallet(ctx context.Context, userId string) (*models.Wallet, error) {
	return s.db.GetWalletByUser(ctx, userId)
}

// GetTransactionHistory returns the wallet's paginated transaction history,
// newest first.
func (s *WalletService) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	wallet, err := s.db.GetWalletByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return s.db.GetTransactionHistory(ctx, wallet.Id, limit, offset)
}
