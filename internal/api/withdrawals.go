package api

import (
	"context"
	"fmt"

	"pvtela-wallet-go/internal/fees"
	"pvtela-wallet-go/internal/gateway"
	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WithdrawToBank debits the wallet and queues a manual bank settlement. The
// gross amount leaves the wallet; the net (gross minus fee) is what the bank
// eventually pays out. The debit and both transaction rows commit atomically.
func (s *WalletService) WithdrawToBank(ctx context.Context, userId, amountStr, linkedAccountId string) (*models.WithdrawalResult, error) {
	wallet, err := s.db.GetWalletByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	account, err := s.db.GetLinkedAccount(ctx, linkedAccountId, userId)
	if err != nil || account.AccountType != models.AccountTypeBank {
		return nil, fmt.Errorf("%w: invalid or inaccessible bank account", ErrValidation)
	}

	gross, fee, net, err := s.validateWithdrawalAmount(amountStr, wallet)
	if err != nil {
		return nil, err
	}

	accNumber := account.Details.Bank.AccountNumber
	suffix := accNumber
	if len(accNumber) > 4 {
		suffix = accNumber[len(accNumber)-4:]
	}
	description := fmt.Sprintf(
		"Bank withdrawal to %s Acc ending ****%s. User receives %s %s after %s %s fee.",
		account.Details.Bank.BankName, suffix,
		net.StringFixed(2), s.policy.Currency, fee.StringFixed(2), s.policy.Currency)

	debit, err := s.db.DebitForWithdrawal(ctx, store.WithdrawalDebitParams{
		WalletId:       wallet.Id,
		Gross:          gross,
		Fee:            fee,
		Currency:       s.policy.Currency,
		Status:         models.StatusPendingManual,
		Description:    description,
		FeeDescription: "Fee for bank withdrawal.",
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Bank withdrawal queued for manual settlement",
		zap.String("transaction_id", debit.Withdrawal.Id),
		zap.String("user_id", userId),
		zap.String("linked_account_id", linkedAccountId),
		zap.String("gross", gross.String()),
		zap.String("net_to_user", net.String()),
		zap.String("new_balance", debit.NewBalance.String()))

	return &models.WithdrawalResult{
		TransactionId: debit.Withdrawal.Id,
		Status:        debit.Withdrawal.Status,
		Gross:         gross,
		Fee:           fee,
		Net:           net,
		Currency:      s.policy.Currency,
		NewBalance:    debit.NewBalance,
	}, nil
}

// WithdrawToPayPal debits the wallet, then asks the provider to pay the net
// amount out to the linked PayPal account. A provider call failure or a
// non-success terminal item status compensates the debit: balance restored,
// withdrawal failed, fee cancelled.
func (s *WalletService) WithdrawToPayPal(ctx context.Context, userId, amountStr, linkedAccountId string) (*models.WithdrawalResult, error) {
	wallet, err := s.db.GetWalletByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	account, err := s.db.GetLinkedAccount(ctx, linkedAccountId, userId)
	if err != nil || account.AccountType != models.AccountTypePayPal {
		return nil, fmt.Errorf("%w: invalid or inaccessible PayPal account", ErrValidation)
	}
	recipientEmail := account.Details.PayPal.Email

	gross, fee, net, err := s.validateWithdrawalAmount(amountStr, wallet)
	if err != nil {
		return nil, err
	}
	if net.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: withdrawal amount too small after fees", ErrValidation)
	}

	description := fmt.Sprintf(
		"PayPal withdrawal to %s. User receives %s %s after %s %s fee. Gross: %s %s.",
		recipientEmail, net.StringFixed(2), s.policy.Currency,
		fee.StringFixed(2), s.policy.Currency, gross.StringFixed(2), s.policy.Currency)

	debit, err := s.db.DebitForWithdrawal(ctx, store.WithdrawalDebitParams{
		WalletId:       wallet.Id,
		Gross:          gross,
		Fee:            fee,
		Currency:       s.policy.Currency,
		Status:         models.StatusProcessingPayout,
		Description:    description,
		FeeDescription: "Fee for PayPal withdrawal.",
	})
	if err != nil {
		return nil, err
	}

	payout, err := s.gateway.CreatePayout(ctx, gateway.PayoutParams{
		RecipientEmail: recipientEmail,
		Amount:         net.StringFixed(2),
		Currency:       s.policy.Currency,
		IdempotencyKey: debit.Withdrawal.Id,
	})
	if err != nil {
		// The payout request itself failed; nothing left the provider.
		s.compensate(ctx, wallet.Id, debit, gross,
			fmt.Sprintf("PayPal payout request failed: %v", err), "")
		return nil, fmt.Errorf("PayPal payout failed: %w", err)
	}

	switch payout.ItemStatus {
	case gateway.PayoutItemSuccess:
		updated, err := s.db.TransitionTransaction(ctx, store.TransitionParams{
			TransactionId:         debit.Withdrawal.Id,
			To:                    models.StatusCompleted,
			Description:           "PayPal payout succeeded.",
			ExternalTransactionId: payout.BatchId,
		})
		if err != nil {
			return nil, err
		}
		zap.L().Info("PayPal payout succeeded",
			zap.String("transaction_id", updated.Id),
			zap.String("payout_batch_id", payout.BatchId),
			zap.String("net_sent", net.String()))
		return s.withdrawalResult(debit, gross, fee, net, updated.Status, payout.BatchId, debit.NewBalance), nil

	case gateway.PayoutItemPending, gateway.PayoutItemUnclaimed:
		// Balance stays debited awaiting recipient action; an external
		// reconciliation sweep settles this later.
		updated, err := s.db.TransitionTransaction(ctx, store.TransitionParams{
			TransactionId:         debit.Withdrawal.Id,
			To:                    models.StatusPendingPayPalConfirmation,
			Description:           fmt.Sprintf("PayPal payout status: %s.", payout.ItemStatus),
			ExternalTransactionId: payout.BatchId,
		})
		if err != nil {
			return nil, err
		}
		zap.L().Info("PayPal payout awaiting confirmation",
			zap.String("transaction_id", updated.Id),
			zap.String("payout_batch_id", payout.BatchId),
			zap.String("item_status", payout.ItemStatus))
		return s.withdrawalResult(debit, gross, fee, net, updated.Status, payout.BatchId, debit.NewBalance), nil

	default:
		// The provider accepted the request but reported a non-success
		// terminal item status (DENIED, BLOCKED, REVERSED, ...). One
		// consistent compensation policy: restore the debit.
		reason := fmt.Sprintf("PayPal payout status: %s.", payout.ItemStatus)
		if payout.ErrorDetail != "" {
			reason += " Error: " + payout.ErrorDetail + "."
		}
		s.compensate(ctx, wallet.Id, debit, gross, reason, payout.BatchId)

		restored, err := s.db.GetWallet(ctx, wallet.Id)
		if err != nil {
			return nil, err
		}
		zap.L().Error("PayPal payout failed after acceptance, debit compensated",
			zap.String("transaction_id", debit.Withdrawal.Id),
			zap.String("payout_batch_id", payout.BatchId),
			zap.String("item_status", payout.ItemStatus))
		return s.withdrawalResult(debit, gross, fee, net, models.StatusFailed, payout.BatchId, restored.Balance), nil
	}
}

// validateWithdrawalAmount parses and bounds-checks a withdrawal request
// against the wallet. Rejection happens before any transaction or balance
// change exists.
func (s *WalletService) validateWithdrawalAmount(amountStr string, wallet *models.Wallet) (gross, fee, net decimal.Decimal, err error) {
	gross, err = decimal.NewFromString(amountStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero,
			fmt.Errorf("%w: invalid amount format %q", ErrValidation, amountStr)
	}
	if gross.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, decimal.Zero,
			fmt.Errorf("%w: withdrawal amount must be positive", ErrValidation)
	}
	if wallet.Balance.LessThan(gross) {
		return decimal.Zero, decimal.Zero, decimal.Zero,
			fmt.Errorf("%w: balance %s, requested %s",
				store.ErrInsufficientFunds, wallet.Balance.String(), gross.String())
	}

	fee, net = fees.Calculate(gross, s.policy.FeeRate)
	return gross, fee, net, nil
}

// compensate undoes an optimistic withdrawal debit. Failures here are logged
// loudly: a debit without a terminal explanation must never survive silently.
func (s *WalletService) compensate(ctx context.Context, walletId string, debit *store.WithdrawalDebit, gross decimal.Decimal, reason, batchId string) {
	err := s.db.CompensateWithdrawal(ctx, store.CompensateWithdrawalParams{
		WithdrawalTxId: debit.Withdrawal.Id,
		FeeTxId:        debit.FeeTx.Id,
		WalletId:       walletId,
		Gross:          gross,
		Currency:       s.policy.Currency,
		Reason:         reason,
		PayoutBatchId:  batchId,
	})
	if err != nil {
		zap.L().Error("CRITICAL: failed to compensate withdrawal debit",
			zap.String("withdrawal_tx_id", debit.Withdrawal.Id),
			zap.String("wallet_id", walletId),
			zap.String("gross", gross.String()),
			zap.Error(err))
	}
}

func (s *WalletService) withdrawalResult(debit *store.WithdrawalDebit, gross, fee, net decimal.Decimal, status models.TransactionStatus, batchId string, balance decimal.Decimal) *models.WithdrawalResult {
	return &models.WithdrawalResult{
		TransactionId: debit.Withdrawal.Id,
		Status:        status,
		Gross:         gross,
		Fee:           fee,
		Net:           net,
		Currency:      s.policy.Currency,
		NewBalance:    balance,
		PayoutBatchId: batchId,
	}
}
