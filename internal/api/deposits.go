package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"pvtela-wallet-go/internal/fees"
	"pvtela-wallet-go/internal/gateway"
	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// feeExternalId derives the idempotency key for a deposit's fee record from
// the provider payment id. Both confirmation channels use the same
// derivation, so the storage-layer uniqueness constraint makes a duplicate
// delivery a pure no-op regardless of which channel wins the race.
func feeExternalId(paymentId string) string {
	return paymentId + "_fee"
}

// InitiateDeposit starts a top-up: validates the gross amount against the
// policy bounds, records a pending deposit, and creates a provider order for
// the payer to approve. No balance is touched.
func (s *WalletService) InitiateDeposit(ctx context.Context, userId, amountStr string) (*models.DepositInitiation, error) {
	wallet, err := s.db.GetWalletByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	gross, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount format %q", ErrValidation, amountStr)
	}
	if gross.LessThan(s.policy.MinTopUp) || gross.GreaterThan(s.policy.MaxTopUp) {
		return nil, fmt.Errorf("%w: amount must be between %s and %s %s",
			ErrValidation, s.policy.MinTopUp.String(), s.policy.MaxTopUp.String(), s.policy.Currency)
	}

	pendingTx, err := s.db.CreateTransaction(ctx, store.CreateTransactionParams{
		WalletId:    wallet.Id,
		Type:        models.TypeDeposit,
		Amount:      gross,
		Currency:    s.policy.Currency,
		Status:      models.StatusPending,
		Description: "PayPal top-up initiation.",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create deposit transaction: %w", err)
	}

	order, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderParams{
		Amount:     gross.StringFixed(2),
		Currency:   s.policy.Currency,
		ApproveUrl: fmt.Sprintf("%s/top-up/paypal/execute/%s", s.policy.ReturnUrlBase, pendingTx.Id),
		CancelUrl:  fmt.Sprintf("%s/top-up/paypal/cancel/%s", s.policy.ReturnUrlBase, pendingTx.Id),
	})
	if err != nil {
		// The order never existed; fail the transaction with the provider's
		// error recorded. Balance untouched.
		if _, txErr := s.db.TransitionTransaction(ctx, store.TransitionParams{
			TransactionId: pendingTx.Id,
			To:            models.StatusFailed,
			Description:   fmt.Sprintf("PayPal initiation failed: %v", err),
		}); txErr != nil {
			zap.L().Error("Failed to mark deposit as failed after order creation error",
				zap.String("transaction_id", pendingTx.Id),
				zap.Error(txErr))
		}
		return nil, fmt.Errorf("failed to initiate PayPal payment: %w", err)
	}

	if err := s.db.AttachExternalId(ctx, pendingTx.Id, order.PaymentId); err != nil {
		return nil, fmt.Errorf("failed to store payment id on transaction: %w", err)
	}

	zap.L().Info("Deposit initiated",
		zap.String("transaction_id", pendingTx.Id),
		zap.String("payment_id", order.PaymentId),
		zap.String("wallet_id", wallet.Id),
		zap.String("gross", gross.String()),
		zap.String("currency", s.policy.Currency))

	return &models.DepositInitiation{
		TransactionId: pendingTx.Id,
		PaymentId:     order.PaymentId,
		ApprovalUrl:   order.ApprovalUrl,
	}, nil
}

// ExecuteDeposit handles the payer's synchronous return from the provider.
// The transaction must belong to the requesting user and still be pending;
// otherwise the call is a conflict no-op because a prior execute or webhook
// already resolved it.
func (s *WalletService) ExecuteDeposit(ctx context.Context, userId, transactionId, paymentId, payerId string) (*models.DepositResult, error) {
	if paymentId == "" || payerId == "" {
		return nil, fmt.Errorf("%w: missing paymentId or payerId", ErrValidation)
	}

	tx, err := s.db.GetTransaction(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, tx, userId); err != nil {
		return nil, err
	}
	if tx.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: transaction %s already in status %s",
			store.ErrTransactionConflict, tx.Id, tx.Status)
	}
	if tx.ExternalTransactionId != "" && tx.ExternalTransactionId != paymentId {
		return nil, fmt.Errorf("%w: paymentId does not match transaction %s", ErrValidation, tx.Id)
	}

	if _, err := s.gateway.ExecutePayment(ctx, paymentId, payerId); err != nil {
		if _, txErr := s.db.TransitionTransaction(ctx, store.TransitionParams{
			TransactionId: tx.Id,
			To:            models.StatusFailed,
			Description:   fmt.Sprintf("PayPal execution failed: %v", err),
		}); txErr != nil {
			zap.L().Error("Failed to mark deposit as failed after execution error",
				zap.String("transaction_id", tx.Id),
				zap.Error(txErr))
		}
		return nil, fmt.Errorf("PayPal payment execution failed: %w", err)
	}

	return s.creditDeposit(ctx, tx, paymentId,
		"PayPal payment completed via execute callback.",
		fmt.Sprintf("Processing fee for PayPal top-up (TXN ID: %s).", tx.Id))
}

// CancelDeposit resolves a pending top-up the payer abandoned.
func (s *WalletService) CancelDeposit(ctx context.Context, userId, transactionId string) error {
	tx, err := s.db.GetTransaction(ctx, transactionId)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(ctx, tx, userId); err != nil {
		return err
	}

	_, err = s.db.TransitionTransaction(ctx, store.TransitionParams{
		TransactionId: tx.Id,
		To:            models.StatusCancelled,
		Description:   "User cancelled PayPal payment.",
	})
	if err != nil {
		return err
	}

	zap.L().Info("Deposit cancelled",
		zap.String("transaction_id", tx.Id),
		zap.String("user_id", userId))
	return nil
}

// HandleWebhook processes an asynchronous, at-least-once provider
// notification. Verification failure is never interpreted as an event.
// Unknown or irrelevant events are acknowledged without mutation; redelivery
// of an already-processed event is a pure no-op.
func (s *WalletService) HandleWebhook(ctx context.Context, rawBody []byte, headers http.Header) error {
	event, err := s.gateway.VerifyWebhook(ctx, rawBody, headers)
	if err != nil {
		zap.L().Warn("Webhook verification failed", zap.Error(err))
		return err
	}

	zap.L().Info("Webhook event received",
		zap.String("event_id", event.Id),
		zap.String("event_type", event.Type),
		zap.String("payment_id", event.PaymentId))

	if event.PaymentId == "" {
		zap.L().Error("Webhook event carries no payment id, acknowledging without action",
			zap.String("event_id", event.Id))
		return nil
	}

	switch event.Type {
	case gateway.EventSaleCompleted:
		return s.handleSaleCompleted(ctx, event)
	case gateway.EventSaleDenied:
		return s.handleSaleDenied(ctx, event)
	default:
		zap.L().Info("Unhandled webhook event type, acknowledging",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.Id))
		return nil
	}
}

func (s *WalletService) handleSaleCompleted(ctx context.Context, event *gateway.Event) error {
	tx, err := s.db.FindTransactionByExternalId(ctx, event.PaymentId)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			zap.L().Warn("Webhook sale-completed for unknown payment id, acknowledging",
				zap.String("payment_id", event.PaymentId),
				zap.String("event_id", event.Id))
			return nil
		}
		return err
	}

	if tx.Status != models.StatusPending {
		zap.L().Info("Webhook sale-completed for already-resolved transaction, no action",
			zap.String("transaction_id", tx.Id),
			zap.String("status", string(tx.Status)),
			zap.String("event_id", event.Id))
		return nil
	}

	_, err = s.creditDeposit(ctx, tx, event.PaymentId,
		fmt.Sprintf("PayPal payment completed via webhook. Event ID: %s. Sale ID: %s.", event.Id, event.SaleId),
		fmt.Sprintf("Fee for PayPal deposit (Webhook - Sale: %s).", event.SaleId))
	if err != nil {
		if errors.Is(err, store.ErrTransactionConflict) || errors.Is(err, store.ErrDuplicateTransaction) {
			// Lost the race against the execute callback or a concurrent
			// delivery; the credit already happened exactly once.
			zap.L().Info("Webhook credit already performed by another channel, no action",
				zap.String("transaction_id", tx.Id),
				zap.String("event_id", event.Id))
			return nil
		}
		return err
	}
	return nil
}

func (s *WalletService) handleSaleDenied(ctx context.Context, event *gateway.Event) error {
	tx, err := s.db.FindTransactionByExternalId(ctx, event.PaymentId)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			zap.L().Warn("Webhook sale-denied for unknown payment id, acknowledging",
				zap.String("payment_id", event.PaymentId),
				zap.String("event_id", event.Id))
			return nil
		}
		return err
	}

	if tx.Status != models.StatusPending {
		zap.L().Info("Webhook sale-denied for already-resolved transaction, no action",
			zap.String("transaction_id", tx.Id),
			zap.String("status", string(tx.Status)))
		return nil
	}

	_, err = s.db.TransitionTransaction(ctx, store.TransitionParams{
		TransactionId: tx.Id,
		To:            models.StatusFailed,
		Description:   fmt.Sprintf("PayPal payment denied via webhook. Event ID: %s.", event.Id),
	})
	if errors.Is(err, store.ErrTransactionConflict) {
		return nil
	}
	return err
}

// creditDeposit runs the atomic credit step shared by both confirmation
// channels: complete the deposit, credit net = gross - fee, record the fee
// row under its derived idempotency key.
func (s *WalletService) creditDeposit(ctx context.Context, tx *models.Transaction, paymentId, description, feeDescription string) (*models.DepositResult, error) {
	fee, net := fees.Calculate(tx.Amount, s.policy.FeeRate)

	newBalance, err := s.db.CreditDeposit(ctx, store.DepositCreditParams{
		TransactionId:  tx.Id,
		PaymentId:      paymentId,
		Net:            net,
		Fee:            fee,
		FeeExternalId:  feeExternalId(paymentId),
		Description:    description,
		FeeDescription: feeDescription,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Deposit credited successfully",
		zap.String("transaction_id", tx.Id),
		zap.String("payment_id", paymentId),
		zap.String("gross", tx.Amount.String()),
		zap.String("fee", fee.String()),
		zap.String("net_credited", net.String()),
		zap.String("new_balance", newBalance.String()))

	return &models.DepositResult{
		TransactionId: tx.Id,
		Gross:         tx.Amount,
		Fee:           fee,
		NetCredited:   net,
		Currency:      tx.Currency,
		NewBalance:    newBalance,
	}, nil
}

// checkOwnership verifies the transaction's wallet belongs to the requesting
// user before any state is touched.
func (s *WalletService) checkOwnership(ctx context.Context, tx *models.Transaction, userId string) error {
	wallet, err := s.db.GetWallet(ctx, tx.WalletId)
	if err != nil {
		return err
	}
	if wallet.UserId != userId {
		return fmt.Errorf("%w: transaction %s", ErrNotOwner, tx.Id)
	}
	return nil
}
