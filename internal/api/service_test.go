package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"pvtela-wallet-go/internal/database"
	"pvtela-wallet-go/internal/gateway"
	"pvtela-wallet-go/internal/models"

	"github.com/shopspring/decimal"
)

// fakeGateway scripts provider behavior for orchestration tests. The zero
// value approves everything.
type fakeGateway struct {
	createOrderErr error
	executeErr     error
	verifyErr      error
	event          *gateway.Event
	payoutResult   *gateway.PayoutResult
	payoutErr      error

	orderCount  int
	payoutCount int
	lastPayout  gateway.PayoutParams
}

func (f *fakeGateway) CreateOrder(ctx context.Context, params gateway.CreateOrderParams) (*gateway.Order, error) {
	if f.createOrderErr != nil {
		return nil, f.createOrderErr
	}
	f.orderCount++
	return &gateway.Order{
		PaymentId:   fmt.Sprintf("PAY-%d", f.orderCount),
		ApprovalUrl: "https://provider.test/approve",
	}, nil
}

func (f *fakeGateway) ExecutePayment(ctx context.Context, paymentId, payerId string) (*gateway.ExecuteResult, error) {
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	return &gateway.ExecuteResult{PaymentId: paymentId, State: "approved"}, nil
}

func (f *fakeGateway) VerifyWebhook(ctx context.Context, rawBody []byte, headers http.Header) (*gateway.Event, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.event, nil
}

func (f *fakeGateway) CreatePayout(ctx context.Context, params gateway.PayoutParams) (*gateway.PayoutResult, error) {
	f.payoutCount++
	f.lastPayout = params
	if f.payoutErr != nil {
		return nil, f.payoutErr
	}
	if f.payoutResult != nil {
		return f.payoutResult, nil
	}
	return &gateway.PayoutResult{BatchId: "BATCH-1", ItemStatus: gateway.PayoutItemSuccess}, nil
}

func testPolicy() models.WalletPolicy {
	return models.WalletPolicy{
		Currency:      "ZAR",
		MinTopUp:      decimal.RequireFromString("50.00"),
		MaxTopUp:      decimal.RequireFromString("25000.00"),
		FeeRate:       decimal.RequireFromString("0.15"),
		ReturnUrlBase: "http://localhost:5000",
	}
}

func setupService(t *testing.T) (*WalletService, *fakeGateway, func()) {
	dbService, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	gw := &fakeGateway{}
	service := NewWalletService(dbService, gw, testPolicy())

	cleanup := func() {
		dbService.Close()
	}
	return service, gw, cleanup
}

// fundWallet ensures a wallet exists for userId with the given balance.
func fundWallet(t *testing.T, service *WalletService, userId, balance string) *models.Wallet {
	ctx := context.Background()

	wallet, err := service.EnsureWallet(ctx, userId)
	if err != nil {
		t.Fatalf("Failed to create wallet: %v", err)
	}

	amount := decimal.RequireFromString(balance)
	if !amount.IsZero() {
		if _, err := service.db.AdjustBalance(ctx, wallet.Id, amount); err != nil {
			t.Fatalf("Failed to fund wallet: %v", err)
		}
	}

	wallet, err = service.GetWallet(ctx, userId)
	if err != nil {
		t.Fatalf("Failed to reload wallet: %v", err)
	}
	return wallet
}
