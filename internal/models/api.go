package models

import "github.com/shopspring/decimal"

// DepositInitiation is returned by a successful top-up initiation. The caller
// redirects the payer to ApprovalUrl; TransactionId keys the later execute or
// cancel callback.
type DepositInitiation struct {
	TransactionId string
	PaymentId     string
	ApprovalUrl   string
}

// DepositResult describes the outcome of crediting a deposit.
type DepositResult struct {
	TransactionId string
	Gross         decimal.Decimal
	Fee           decimal.Decimal
	NetCredited   decimal.Decimal
	Currency      string
	NewBalance    decimal.Decimal
}

// WithdrawalResult describes the outcome of a withdrawal request. Status is
// the withdrawal transaction's status after the call returns; PayoutBatchId
// is set when the provider accepted a payout request.
type WithdrawalResult struct {
	TransactionId string
	Status        TransactionStatus
	Gross         decimal.Decimal
	Fee           decimal.Decimal
	Net           decimal.Decimal
	Currency      string
	NewBalance    decimal.Decimal
	PayoutBatchId string
}
