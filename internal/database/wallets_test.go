package database

import (
	"context"
	"errors"
	"testing"

	"pvtela-wallet-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestCreateWallet_Idempotent(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	first, err := service.CreateWallet(ctx, "user1")
	if err != nil {
		t.Fatalf("CreateWallet failed: %v", err)
	}
	if !first.Balance.Equal(decimal.Zero) {
		t.Errorf("Expected zero balance, got %s", first.Balance.String())
	}

	second, err := service.CreateWallet(ctx, "user1")
	if err != nil {
		t.Fatalf("Second CreateWallet failed: %v", err)
	}
	if second.Id != first.Id {
		t.Errorf("Expected same wallet id %s, got %s", first.Id, second.Id)
	}
}

func TestGetWallet_NotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.GetWallet(context.Background(), "missing")
	if !errors.Is(err, store.ErrWalletNotFound) {
		t.Errorf("Expected ErrWalletNotFound, got %v", err)
	}

	_, err = service.GetWalletByUser(context.Background(), "missing")
	if !errors.Is(err, store.ErrWalletNotFound) {
		t.Errorf("Expected ErrWalletNotFound for user lookup, got %v", err)
	}
}

func TestAdjustBalance(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "100.00")

	newBalance, err := service.AdjustBalance(ctx, wallet.Id, decimal.RequireFromString("-30.00"))
	if err != nil {
		t.Fatalf("AdjustBalance failed: %v", err)
	}
	if !newBalance.Equal(decimal.RequireFromString("70.00")) {
		t.Errorf("Expected balance 70.00, got %s", newBalance.String())
	}

	reloaded, err := service.GetWallet(ctx, wallet.Id)
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if !reloaded.Balance.Equal(newBalance) {
		t.Errorf("Persisted balance %s does not match returned %s",
			reloaded.Balance.String(), newBalance.String())
	}
	if reloaded.Version <= wallet.Version {
		t.Errorf("Expected version to increase from %d, got %d", wallet.Version, reloaded.Version)
	}
}

func TestAdjustBalance_InsufficientFunds(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "20.00")

	_, err := service.AdjustBalance(ctx, wallet.Id, decimal.RequireFromString("-20.01"))
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	reloaded, err := service.GetWallet(ctx, wallet.Id)
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if !reloaded.Balance.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("Balance must be unchanged after rejection, got %s", reloaded.Balance.String())
	}
}

func TestAdjustBalance_ExactDrain(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	wallet := fundedWallet(t, service, "user1", "20.00")

	newBalance, err := service.AdjustBalance(ctx, wallet.Id, decimal.RequireFromString("-20.00"))
	if err != nil {
		t.Fatalf("Draining to exactly zero must succeed: %v", err)
	}
	if !newBalance.Equal(decimal.Zero) {
		t.Errorf("Expected balance 0, got %s", newBalance.String())
	}
}
