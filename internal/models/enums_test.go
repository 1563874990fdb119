package models

import "testing"

func TestTransactionStatus_CanTransitionTo(t *testing.T) {
	allowed := []struct {
		from, to TransactionStatus
	}{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusPending, StatusCancelled},
		{StatusPendingManual, StatusCompleted},
		{StatusPendingManual, StatusFailed},
		{StatusProcessingPayout, StatusCompleted},
		{StatusProcessingPayout, StatusFailed},
		{StatusProcessingPayout, StatusPendingPayPalConfirmation},
		{StatusPendingPayPalConfirmation, StatusCompleted},
		{StatusPendingPayPalConfirmation, StatusFailed},
	}
	for _, tt := range allowed {
		if !tt.from.CanTransitionTo(tt.to) {
			t.Errorf("%s -> %s must be allowed", tt.from, tt.to)
		}
	}

	denied := []struct {
		from, to TransactionStatus
	}{
		{StatusPending, StatusProcessingPayout},
		{StatusPendingManual, StatusCancelled},
		{StatusProcessingPayout, StatusCancelled},
		{StatusCompleted, StatusFailed},
		{StatusFailed, StatusPending},
		{StatusCancelled, StatusCompleted},
		{StatusPending, StatusPending},
	}
	for _, tt := range denied {
		if tt.from.CanTransitionTo(tt.to) {
			t.Errorf("%s -> %s must be denied", tt.from, tt.to)
		}
	}
}

func TestTransactionStatus_TerminalStatesHaveNoExits(t *testing.T) {
	all := []TransactionStatus{
		StatusPending, StatusCompleted, StatusFailed, StatusCancelled,
		StatusPendingManual, StatusProcessingPayout, StatusPendingPayPalConfirmation,
	}

	for _, status := range all {
		if !status.IsTerminal() {
			continue
		}
		for _, next := range all {
			if status.CanTransitionTo(next) {
				t.Errorf("terminal %s must not transition to %s", status, next)
			}
		}
	}
}

func TestEnumValidity(t *testing.T) {
	if !TypeDeposit.IsValid() || !TypeRefund.IsValid() {
		t.Error("Known transaction types must be valid")
	}
	if TransactionType("transfer").IsValid() {
		t.Error("Unknown transaction type must be invalid")
	}

	if !StatusPendingPayPalConfirmation.IsValid() {
		t.Error("Known status must be valid")
	}
	if TransactionStatus("on_hold").IsValid() {
		t.Error("Unknown status must be invalid")
	}

	if !AccountTypeBank.IsValid() || !AccountTypePayPal.IsValid() {
		t.Error("Known account types must be valid")
	}
	if AccountType("venmo").IsValid() {
		t.Error("Unknown account type must be invalid")
	}
}
