// Package gateway defines the abstract payment-provider contract the ledger
// orchestration depends on. Gateway implementations never mutate the ledger;
// only their callers interpret gateway results into ledger state changes.
package gateway

import (
	"context"
	"errors"
	"net/http"
)

// Sentinel errors returned by gateway implementations.
var (
	// ErrProvider marks a failure reported by or while reaching the provider.
	ErrProvider = errors.New("payment provider error")
	// ErrVerificationFailed marks a webhook whose signature did not verify.
	// The payload must never be interpreted as an event.
	ErrVerificationFailed = errors.New("webhook verification failed")
)

// Webhook event types interpreted by the deposit reconciler.
const (
	EventSaleCompleted = "PAYMENT.SALE.COMPLETED"
	EventSaleDenied    = "PAYMENT.SALE.DENIED"
)

// Payout item statuses reported by the provider after accepting a payout.
const (
	PayoutItemSuccess   = "SUCCESS"
	PayoutItemPending   = "PENDING"
	PayoutItemUnclaimed = "UNCLAIMED"
)

// CreateOrderParams describes a payment order to create at the provider.
// Amounts are decimal strings, never binary floats.
type CreateOrderParams struct {
	Amount     string
	Currency   string
	ApproveUrl string
	CancelUrl  string
}

// Order is a provider-side payment order awaiting payer approval.
type Order struct {
	PaymentId   string
	ApprovalUrl string
}

// ExecuteResult is the provider's confirmation of an approved payment.
type ExecuteResult struct {
	PaymentId string
	State     string
}

// Event is a verified webhook notification.
type Event struct {
	Id   string
	Type string
	// PaymentId is the parent payment the event refers to; this is the id
	// stored on the ledger transaction at initiation time.
	PaymentId string
	// SaleId is the provider's id for the sale resource itself.
	SaleId string
}

// PayoutParams describes a provider payout to an external recipient.
type PayoutParams struct {
	RecipientEmail string
	Amount         string
	Currency       string
	// IdempotencyKey becomes the provider's sender batch id so a retried
	// request cannot produce a second payout.
	IdempotencyKey string
}

// PayoutResult is the provider's synchronous answer to an accepted payout.
type PayoutResult struct {
	BatchId     string
	ItemStatus  string
	ErrorDetail string
}

// PaymentGateway is the provider boundary: creating an order, executing it
// after payer approval, authenticating webhooks and issuing payouts. Calls
// are synchronous; a non-responding provider surfaces as the caller's own
// timeout through ctx.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)
	ExecutePayment(ctx context.Context, paymentId, payerId string) (*ExecuteResult, error)
	VerifyWebhook(ctx context.Context, rawBody []byte, headers http.Header) (*Event, error)
	CreatePayout(ctx context.Context, params PayoutParams) (*PayoutResult, error)
}
