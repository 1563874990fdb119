package database

import (
	"context"
	"errors"
	"testing"

	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/store"

	"github.com/shopspring/decimal"
)

func pendingDeposit(t *testing.T, service *Service, walletId, paymentId string) *models.Transaction {
	ctx := context.Background()
	tx, err := service.CreateTransaction(ctx, store.CreateTransactionParams{
		WalletId:              walletId,
		Type:                  models.TypeDeposit,
		Amount:                decimal.RequireFromString("100.00"),
		Currency:              "ZAR",
		Status:                models.StatusPending,
		ExternalTransactionId: paymentId,
	})
	if err != nil {
		t.Fatalf("Failed to create pending deposit: %v", err)
	}
	return tx
}

func TestCreditDeposit(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "0")
	deposit := pendingDeposit(t, service, wallet.Id, "PAY-1")

	newBalance, err := service.CreditDeposit(ctx, store.DepositCreditParams{
		TransactionId:  deposit.Id,
		PaymentId:      "PAY-1",
		Net:            decimal.RequireFromString("85.00"),
		Fee:            decimal.RequireFromString("15.00"),
		FeeExternalId:  "PAY-1_fee",
		Description:    "Payment completed.",
		FeeDescription: "Processing fee.",
	})
	if err != nil {
		t.Fatalf("CreditDeposit failed: %v", err)
	}
	if !newBalance.Equal(decimal.RequireFromString("85.00")) {
		t.Errorf("Expected balance 85.00, got %s", newBalance.String())
	}

	completed, err := service.GetTransaction(ctx, deposit.Id)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Errorf("Expected deposit completed, got %s", completed.Status)
	}

	fee, err := service.FindTransactionByExternalId(ctx, "PAY-1_fee")
	if err != nil {
		t.Fatalf("Fee transaction not found: %v", err)
	}
	if fee.Type != models.TypeFee || fee.Status != models.StatusCompleted {
		t.Errorf("Expected completed fee transaction, got %s/%s", fee.Type, fee.Status)
	}
	if !fee.Amount.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("Expected fee amount 15.00, got %s", fee.Amount.String())
	}
}

func TestCreditDeposit_SecondChannelIsNoOp(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "0")
	deposit := pendingDeposit(t, service, wallet.Id, "PAY-1")

	params := store.DepositCreditParams{
		TransactionId: deposit.Id,
		PaymentId:     "PAY-1",
		Net:           decimal.RequireFromString("85.00"),
		Fee:           decimal.RequireFromString("15.00"),
		FeeExternalId: "PAY-1_fee",
	}

	if _, err := service.CreditDeposit(ctx, params); err != nil {
		t.Fatalf("First CreditDeposit failed: %v", err)
	}

	// Whichever channel arrives second hits the status gate.
	_, err := service.CreditDeposit(ctx, params)
	if !errors.Is(err, store.ErrTransactionConflict) {
		t.Fatalf("Expected ErrTransactionConflict on second credit, got %v", err)
	}

	reloaded, err := service.GetWallet(ctx, wallet.Id)
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if !reloaded.Balance.Equal(decimal.RequireFromString("85.00")) {
		t.Errorf("Balance must be credited exactly once, got %s", reloaded.Balance.String())
	}
}

func TestCreditDeposit_NonDepositRejected(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "100.00")

	debit, err := service.DebitForWithdrawal(ctx, store.WithdrawalDebitParams{
		WalletId: wallet.Id,
		Gross:    decimal.RequireFromString("50.00"),
		Fee:      decimal.RequireFromString("7.50"),
		Currency: "ZAR",
		Status:   models.StatusPendingManual,
	})
	if err != nil {
		t.Fatalf("DebitForWithdrawal failed: %v", err)
	}

	_, err = service.CreditDeposit(ctx, store.DepositCreditParams{
		TransactionId: debit.Withdrawal.Id,
		PaymentId:     "PAY-X",
		Net:           decimal.RequireFromString("42.50"),
		Fee:           decimal.RequireFromString("7.50"),
		FeeExternalId: "PAY-X_fee",
	})
	if !errors.Is(err, store.ErrTransactionConflict) {
		t.Errorf("Expected ErrTransactionConflict for non-deposit, got %v", err)
	}
}

func TestDebitForWithdrawal(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "100.00")

	debit, err := service.DebitForWithdrawal(ctx, store.WithdrawalDebitParams{
		WalletId:       wallet.Id,
		Gross:          decimal.RequireFromString("60.00"),
		Fee:            decimal.RequireFromString("9.00"),
		Currency:       "ZAR",
		Status:         models.StatusProcessingPayout,
		Description:    "PayPal withdrawal.",
		FeeDescription: "Fee for PayPal withdrawal.",
	})
	if err != nil {
		t.Fatalf("DebitForWithdrawal failed: %v", err)
	}

	if !debit.NewBalance.Equal(decimal.RequireFromString("40.00")) {
		t.Errorf("Expected balance 40.00, got %s", debit.NewBalance.String())
	}
	if debit.Withdrawal.Status != models.StatusProcessingPayout {
		t.Errorf("Expected withdrawal in processing_payout, got %s", debit.Withdrawal.Status)
	}
	if debit.FeeTx.Status != models.StatusCompleted {
		t.Errorf("Expected fee completed, got %s", debit.FeeTx.Status)
	}
}

func TestDebitForWithdrawal_InsufficientFundsLeavesNoTrace(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "30.00")

	_, err := service.DebitForWithdrawal(ctx, store.WithdrawalDebitParams{
		WalletId: wallet.Id,
		Gross:    decimal.RequireFromString("60.00"),
		Fee:      decimal.RequireFromString("9.00"),
		Currency: "ZAR",
		Status:   models.StatusPendingManual,
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	history, err := service.GetTransactionHistory(ctx, wallet.Id, 10, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Rejected withdrawal must leave no transactions, got %d", len(history))
	}

	reloaded, _ := service.GetWallet(ctx, wallet.Id)
	if !reloaded.Balance.Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("Balance must be unchanged, got %s", reloaded.Balance.String())
	}
}

func TestCompensateWithdrawal(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "100.00")

	debit, err := service.DebitForWithdrawal(ctx, store.WithdrawalDebitParams{
		WalletId: wallet.Id,
		Gross:    decimal.RequireFromString("60.00"),
		Fee:      decimal.RequireFromString("9.00"),
		Currency: "ZAR",
		Status:   models.StatusProcessingPayout,
	})
	if err != nil {
		t.Fatalf("DebitForWithdrawal failed: %v", err)
	}

	err = service.CompensateWithdrawal(ctx, store.CompensateWithdrawalParams{
		WithdrawalTxId: debit.Withdrawal.Id,
		FeeTxId:        debit.FeeTx.Id,
		WalletId:       wallet.Id,
		Gross:          decimal.RequireFromString("60.00"),
		Currency:       "ZAR",
		Reason:         "PayPal payout status: DENIED.",
		PayoutBatchId:  "BATCH-1",
	})
	if err != nil {
		t.Fatalf("CompensateWithdrawal failed: %v", err)
	}

	reloaded, _ := service.GetWallet(ctx, wallet.Id)
	if !reloaded.Balance.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("Expected balance restored to 100.00, got %s", reloaded.Balance.String())
	}

	withdrawal, err := service.GetTransaction(ctx, debit.Withdrawal.Id)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if withdrawal.Status != models.StatusFailed {
		t.Errorf("Expected withdrawal failed, got %s", withdrawal.Status)
	}
	if withdrawal.ExternalTransactionId != "BATCH-1" {
		t.Errorf("Expected payout batch id recorded, got %q", withdrawal.ExternalTransactionId)
	}

	fee, err := service.GetTransaction(ctx, debit.FeeTx.Id)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if fee.Status != models.StatusCancelled {
		t.Errorf("Expected fee cancelled, got %s", fee.Status)
	}

	refund, err := service.FindTransactionByExternalId(ctx, debit.Withdrawal.Id+"-reversal")
	if err != nil {
		t.Fatalf("Refund transaction not found: %v", err)
	}
	if refund.Type != models.TypeRefund || refund.Status != models.StatusCompleted {
		t.Errorf("Expected completed refund, got %s/%s", refund.Type, refund.Status)
	}
}

func TestCompensateWithdrawal_Idempotent(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "100.00")

	debit, err := service.DebitForWithdrawal(ctx, store.WithdrawalDebitParams{
		WalletId: wallet.Id,
		Gross:    decimal.RequireFromString("60.00"),
		Fee:      decimal.RequireFromString("9.00"),
		Currency: "ZAR",
		Status:   models.StatusProcessingPayout,
	})
	if err != nil {
		t.Fatalf("DebitForWithdrawal failed: %v", err)
	}

	params := store.CompensateWithdrawalParams{
		WithdrawalTxId: debit.Withdrawal.Id,
		FeeTxId:        debit.FeeTx.Id,
		WalletId:       wallet.Id,
		Gross:          decimal.RequireFromString("60.00"),
		Currency:       "ZAR",
		Reason:         "PayPal payout request failed.",
	}

	if err := service.CompensateWithdrawal(ctx, params); err != nil {
		t.Fatalf("First compensation failed: %v", err)
	}
	if err := service.CompensateWithdrawal(ctx, params); err != nil {
		t.Fatalf("Second compensation must be a no-op, got: %v", err)
	}

	reloaded, _ := service.GetWallet(ctx, wallet.Id)
	if !reloaded.Balance.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("Balance must be restored exactly once, got %s", reloaded.Balance.String())
	}
}
