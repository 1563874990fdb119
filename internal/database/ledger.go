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

// CreditDeposit is the single credit step shared by the execute callback and
// the webhook channel. In one SQL transaction it completes the pending
// deposit, credits the net amount and records the fee row under its derived
// external id. Both channels gate on status=pending, so whichever arrives
// second gets store.ErrTransactionConflict and must treat it as a no-op; the
// fee row's unique key closes the remaining duplicate-delivery gap.
func (s *Service) CreditDeposit(ctx context.Context, params store.DepositCreditParams) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deposit, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransaction, params.TransactionId))
	if err != nil {
		return decimal.Zero, err
	}
	if deposit.Type != models.TypeDeposit {
		return decimal.Zero, fmt.Errorf("%w: transaction %s is not a deposit",
			store.ErrTransactionConflict, deposit.Id)
	}

	if _, err := transitionTransactionTx(ctx, tx, deposit, store.TransitionParams{
		TransactionId:         deposit.Id,
		To:                    models.StatusCompleted,
		Description:           params.Description,
		ExternalTransactionId: params.PaymentId,
	}); err != nil {
		return decimal.Zero, err
	}

	newBalance, err := adjustBalanceTx(ctx, tx, deposit.WalletId, params.Net)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", err)
	}

	feeTx := &models.Transaction{
		Id:                    uuid.New().String(),
		WalletId:              deposit.WalletId,
		Type:                  models.TypeFee,
		Amount:                params.Fee,
		Currency:              deposit.Currency,
		Status:                models.StatusCompleted,
		Description:           params.FeeDescription,
		ExternalTransactionId: params.FeeExternalId,
		CreatedAt:             time.Now().UTC(),
	}
	feeTx.UpdatedAt = feeTx.CreatedAt
	if err := insertTransactionTx(ctx, tx, feeTx); err != nil {
		if isUniqueConstraintErr(err) {
			// A prior delivery already recorded this fee; nothing to credit.
			return decimal.Zero, fmt.Errorf("%w: fee %s already recorded",
				store.ErrDuplicateTransaction, params.FeeExternalId)
		}
		return decimal.Zero, fmt.Errorf("failed to insert fee transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit deposit credit: %w", err)
	}

	zap.L().Info("Deposit credited",
		zap.String("transaction_id", deposit.Id),
		zap.String("payment_id", params.PaymentId),
		zap.String("net", params.Net.String()),
		zap.String("fee", params.Fee.String()),
		zap.String("new_balance", newBalance.String()))
	return newBalance, nil
}

// DebitForWithdrawal performs the optimistic debit step of a withdrawal. In
// one SQL transaction it debits the gross amount and records the withdrawal
// and fee rows, so a debit is never left unexplained: failure at any step
// rolls the whole debit back before the call returns.
func (s *Service) DebitForWithdrawal(ctx context.Context, params store.WithdrawalDebitParams) (*store.WithdrawalDebit, error) {
	if params.Status != models.StatusPendingManual && params.Status != models.StatusProcessingPayout {
		return nil, fmt.Errorf("invalid withdrawal status %q", params.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	newBalance, err := adjustBalanceTx(ctx, tx, params.WalletId, params.Gross.Neg())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	withdrawal := &models.Transaction{
		Id:          uuid.New().String(),
		WalletId:    params.WalletId,
		Type:        models.TypeWithdrawal,
		Amount:      params.Gross,
		Currency:    params.Currency,
		Status:      params.Status,
		Description: params.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := insertTransactionTx(ctx, tx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to insert withdrawal transaction: %w", err)
	}

	feeTx := &models.Transaction{
		Id:          uuid.New().String(),
		WalletId:    params.WalletId,
		Type:        models.TypeFee,
		Amount:      params.Fee,
		Currency:    params.Currency,
		Status:      models.StatusCompleted,
		Description: params.FeeDescription,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := insertTransactionTx(ctx, tx, feeTx); err != nil {
		return nil, fmt.Errorf("failed to insert fee transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal debit: %w", err)
	}

	zap.L().Info("Withdrawal debited",
		zap.String("transaction_id", withdrawal.Id),
		zap.String("wallet_id", params.WalletId),
		zap.String("gross", params.Gross.String()),
		zap.String("fee", params.Fee.String()),
		zap.String("status", string(params.Status)),
		zap.String("new_balance", newBalance.String()))

	return &store.WithdrawalDebit{
		Withdrawal: withdrawal,
		FeeTx:      feeTx,
		NewBalance: newBalance,
	}, nil
}

// CompensateWithdrawal reverses a debited withdrawal after a payout failure.
// In one SQL transaction it restores the gross to the wallet, fails the
// withdrawal, cancels the fee and records the compensating refund under the
// derived key "<withdrawal_tx_id>-reversal", which makes a second
// compensation attempt a pure no-op.
func (s *Service) CompensateWithdrawal(ctx context.Context, params store.CompensateWithdrawalParams) error {
	reversalId := params.WithdrawalTxId + "-reversal"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingId string
	err = tx.QueryRowContext(ctx, queryCheckDuplicateTransaction, reversalId).Scan(&existingId)
	if err == nil {
		zap.L().Info("Withdrawal already compensated, skipping",
			zap.String("withdrawal_tx_id", params.WithdrawalTxId),
			zap.String("reversal_id", reversalId))
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check for existing reversal: %w", err)
	}

	withdrawal, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransaction, params.WithdrawalTxId))
	if err != nil {
		return err
	}
	if _, err := transitionTransactionTx(ctx, tx, withdrawal, store.TransitionParams{
		TransactionId:         withdrawal.Id,
		To:                    models.StatusFailed,
		Description:           params.Reason,
		ExternalTransactionId: params.PayoutBatchId,
	}); err != nil {
		return err
	}

	newBalance, err := adjustBalanceTx(ctx, tx, params.WalletId, params.Gross)
	if err != nil {
		return fmt.Errorf("failed to restore balance: %w", err)
	}

	// The fee was recorded completed when the debit was taken. Compensation
	// is the one place that revisits a completed row: the charge never took
	// effect, so the row is marked cancelled rather than left claiming a fee
	// that was returned.
	if params.FeeTxId != "" {
		fee, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransaction, params.FeeTxId))
		if err != nil {
			return err
		}
		fee.Status = models.StatusCancelled
		fee.Description = appendDescription(fee.Description, "Cancelled: withdrawal compensated.")
		fee.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx, queryUpdateTransactionStatus,
			string(fee.Status), nullableString(fee.Description),
			nullableString(fee.ExternalTransactionId), fee.UpdatedAt,
			fee.Id, string(models.StatusCompleted)); err != nil {
			return fmt.Errorf("failed to cancel fee transaction: %w", err)
		}
	}

	now := time.Now().UTC()
	refund := &models.Transaction{
		Id:                    uuid.New().String(),
		WalletId:              params.WalletId,
		Type:                  models.TypeRefund,
		Amount:                params.Gross,
		Currency:              params.Currency,
		Status:                models.StatusCompleted,
		Description:           params.Reason,
		ExternalTransactionId: reversalId,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := insertTransactionTx(ctx, tx, refund); err != nil {
		if isUniqueConstraintErr(err) {
			// A concurrent compensation won; its commit carries the restore.
			return nil
		}
		return fmt.Errorf("failed to insert refund transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withdrawal compensation: %w", err)
	}

	zap.L().Info("Withdrawal compensated",
		zap.String("withdrawal_tx_id", params.WithdrawalTxId),
		zap.String("gross_restored", params.Gross.String()),
		zap.String("new_balance", newBalance.String()))
	return nil
}
