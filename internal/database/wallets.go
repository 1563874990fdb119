package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateWallet lazily creates the user's wallet. Idempotent: if a wallet
// already exists (including one created concurrently between our insert and
// re-select), the existing wallet is returned unchanged.
func (s *Service) CreateWallet(ctx context.Context, userId string) (*models.Wallet, error) {
	if userId == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, queryInsertWallet,
		uuid.New().String(), userId, decimal.Zero.StringFixed(2), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	// INSERT OR IGNORE means the row that exists now is authoritative,
	// whether we created it or lost the race.
	wallet, err := s.GetWalletByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("Wallet ready",
		zap.String("wallet_id", wallet.Id),
		zap.String("user_id", userId))
	return wallet, nil
}

func (s *Service) GetWallet(ctx context.Context, walletId string) (*models.Wallet, error) {
	return s.scanWallet(s.db.QueryRowContext(ctx, queryGetWallet, walletId))
}

func (s *Service) GetWalletByUser(ctx context.Context, userId string) (*models.Wallet, error) {
	return s.scanWallet(s.db.QueryRowContext(ctx, queryGetWalletByUser, userId))
}

// ListWallets returns every wallet, oldest first. Reporting helper; not part
// of the store contract.
func (s *Service) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, queryListWallets)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []models.Wallet
	for rows.Next() {
		var wallet models.Wallet
		var balanceStr string
		if err := rows.Scan(&wallet.Id, &wallet.UserId, &balanceStr, &wallet.Version,
			&wallet.CreatedAt, &wallet.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallet.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}

func (s *Service) scanWallet(row *sql.Row) (*models.Wallet, error) {
	var wallet models.Wallet
	var balanceStr string
	err := row.Scan(&wallet.Id, &wallet.UserId, &balanceStr, &wallet.Version,
		&wallet.CreatedAt, &wallet.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	wallet.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
	}
	return &wallet, nil
}

// AdjustBalance atomically applies a signed change to the wallet balance.
// Fails with store.ErrInsufficientFunds if the result would be negative.
func (s *Service) AdjustBalance(ctx context.Context, walletId string, delta decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	newBalance, err := adjustBalanceTx(ctx, tx, walletId, delta)
	if err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit balance adjustment: %w", err)
	}
	return newBalance, nil
}

// adjustBalanceTx applies a signed balance change inside an open SQL
// transaction using optimistic version CAS. The wallet invariant lives here:
// a committed balance is never negative.
func adjustBalanceTx(ctx context.Context, tx *sql.Tx, walletId string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balanceStr string
	var version int64
	err := tx.QueryRowContext(ctx, queryGetWalletForUpdate, walletId).Scan(&balanceStr, &version)
	if err == sql.ErrNoRows {
		return decimal.Zero, store.ErrWalletNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read wallet balance: %w", err)
	}

	currentBalance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
	}

	newBalance := currentBalance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: balance %s, delta %s",
			store.ErrInsufficientFunds, currentBalance.String(), delta.String())
	}

	result, err := tx.ExecContext(ctx, queryUpdateWalletBalance,
		newBalance.StringFixed(2), time.Now().UTC(), walletId, version)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return decimal.Zero, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	return newBalance, nil
}
