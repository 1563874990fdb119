package models

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeFee        TransactionType = "fee"
	TypePayout     TransactionType = "payout"
	TypeRefund     TransactionType = "refund"
)

// IsValid reports whether t is one of the closed set of transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeFee, TypePayout, TypeRefund:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending                   TransactionStatus = "pending"
	StatusCompleted                 TransactionStatus = "completed"
	StatusFailed                    TransactionStatus = "failed"
	StatusCancelled                 TransactionStatus = "cancelled"
	StatusPendingManual             TransactionStatus = "pending_manual"
	StatusProcessingPayout          TransactionStatus = "processing_payout"
	StatusPendingPayPalConfirmation TransactionStatus = "pending_paypal_confirmation"
)

// allowedTransitions is the closed transition table. Terminal states have no
// entries; an attempted transition out of them is a conflict.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:          {StatusCompleted, StatusFailed, StatusCancelled},
	StatusPendingManual:    {StatusCompleted, StatusFailed},
	StatusProcessingPayout: {StatusCompleted, StatusFailed, StatusPendingPayPalConfirmation},
	// Settled by an external reconciliation sweep, not by this core.
	StatusPendingPayPalConfirmation: {StatusCompleted, StatusFailed},
}

// IsValid reports whether s is one of the closed set of statuses.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled,
		StatusPendingManual, StatusProcessingPayout, StatusPendingPayPalConfirmation:
		return true
	}
	return false
}

// IsTerminal reports whether a transaction in status s is immutable.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is an allowed transition.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AccountType is the kind of external destination a linked account points at.
type AccountType string

const (
	AccountTypeBank   AccountType = "bank"
	AccountTypePayPal AccountType = "paypal"
)

func (a AccountType) IsValid() bool {
	return a == AccountTypeBank || a == AccountTypePayPal
}
