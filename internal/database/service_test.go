package database

import (
	"context"
	"database/sql"
	"testing"

	"pvtela-wallet-go/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// One connection, one in-memory database.
	db.SetMaxOpenConns(1)

	service := &Service{db: db}
	if err := service.InitSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

// fundedWallet creates a wallet for userId and credits it with the given balance.
func fundedWallet(t *testing.T, service *Service, userId, balance string) *models.Wallet {
	ctx := context.Background()

	wallet, err := service.CreateWallet(ctx, userId)
	if err != nil {
		t.Fatalf("Failed to create wallet: %v", err)
	}

	amount := decimal.RequireFromString(balance)
	if !amount.IsZero() {
		if _, err := service.AdjustBalance(ctx, wallet.Id, amount); err != nil {
			t.Fatalf("Failed to fund wallet: %v", err)
		}
		wallet, err = service.GetWallet(ctx, wallet.Id)
		if err != nil {
			t.Fatalf("Failed to reload wallet: %v", err)
		}
	}

	return wallet
}
