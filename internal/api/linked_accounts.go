package api

import (
	"context"

	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/store"

	"go.uber.org/zap"
)

// AddLinkedAccount registers an external withdrawal destination for the user.
// Shape validation and the per-user limit are enforced by the store.
func (s *WalletService) AddLinkedAccount(ctx context.Context, params store.LinkedAccountParams) (*models.LinkedAccount, error) {
	account, err := s.db.AddLinkedAccount(ctx, params)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Linked account added",
		zap.String("linked_account_id", account.Id),
		zap.String("user_id", account.UserId),
		zap.String("account_type", string(account.AccountType)))
	return account, nil
}

// ListLinkedAccounts returns the user's registered withdrawal destinations.
func (s *WalletService) ListLinkedAccounts(ctx context.Context, userId string) ([]models.LinkedAccount, error) {
	return s.db.ListLinkedAccounts(ctx, userId)
}

// RemoveLinkedAccount deletes a destination the user owns. In-flight
// withdrawals are unaffected: they carry the destination details in their
// description, not a reference.
func (s *WalletService) RemoveLinkedAccount(ctx context.Context, userId, accountId string) error {
	if err := s.db.RemoveLinkedAccount(ctx, accountId, userId); err != nil {
		return err
	}

	zap.L().Info("Linked account removed",
		zap.String("linked_account_id", accountId),
		zap.String("user_id", userId))
	return nil
}
