package main

import (
	"context"
	"flag"
	"fmt"

	"pvtela-wallet-go/internal/common"
	"pvtela-wallet-go/internal/config"
	"pvtela-wallet-go/internal/database"
	"pvtela-wallet-go/internal/models"

	"go.uber.org/zap"
)

const historyLimit = 10

type balanceStats struct {
	totalWallets      int
	totalTransactions int
}

func formatExternalId(externalId string) string {
	if externalId == "" {
		return "none"
	}
	if len(externalId) > 12 {
		return externalId[:12] + "..."
	}
	return externalId
}

func printTransaction(tx models.Transaction, isLast bool) {
	symbol := common.BoxPrefix(isLast)

	fmt.Printf("%s %-10s %12s %s %-28s ext: %s (%s)\n",
		symbol,
		tx.Type,
		tx.Amount.StringFixed(2),
		tx.Currency,
		tx.Status,
		formatExternalId(tx.ExternalTransactionId),
		tx.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printWalletHeader(wallet models.Wallet, txCount int) {
	fmt.Printf("\n┌─ Wallet: %s\n", wallet.Id)
	fmt.Printf("│  User: %s\n", wallet.UserId)
	fmt.Printf("│  Balance: %s (v%d, updated: %s)\n",
		wallet.Balance.StringFixed(2), wallet.Version,
		wallet.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("│  Recent transactions: %d\n", txCount)
	common.PrintBoxSeparator(78)
}

func processWallet(ctx context.Context, wallet models.Wallet, dbService *database.Service) (int, error) {
	history, err := dbService.GetTransactionHistory(ctx, wallet.Id, historyLimit, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction history: %w", err)
	}

	printWalletHeader(wallet, len(history))
	for i, tx := range history {
		printTransaction(tx, i == len(history)-1)
	}

	return len(history), nil
}

func processWalletsAndGenerateReport(ctx context.Context, wallets []models.Wallet, dbService *database.Service, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, wallet := range wallets {
		stats.totalWallets++

		txCount, err := processWallet(ctx, wallet, dbService)
		if err != nil {
			logger.Error("Failed to process wallet",
				zap.String("wallet_id", wallet.Id),
				zap.String("user_id", wallet.UserId),
				zap.Error(err))
			continue
		}
		stats.totalTransactions += txCount
	}

	return stats
}

func loadWallets(ctx context.Context, dbService *database.Service, userId string) ([]models.Wallet, error) {
	if userId != "" {
		wallet, err := dbService.GetWalletByUser(ctx, userId)
		if err != nil {
			return nil, err
		}
		return []models.Wallet{*wallet}, nil
	}
	return dbService.ListWallets(ctx)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Filter by specific user id (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only report; the payment provider is not needed.
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	wallets, err := loadWallets(ctx, dbService, *userFlag)
	if err != nil {
		logger.Fatal("Failed to load wallets", zap.Error(err))
	}

	common.PrintHeader("WALLET BALANCE REPORT", common.DefaultWidth)

	stats := processWalletsAndGenerateReport(ctx, wallets, dbService, logger)

	summary := fmt.Sprintf("SUMMARY: %d wallets, %d recent transactions shown",
		stats.totalWallets, stats.totalTransactions)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("wallets", stats.totalWallets),
		zap.Int("transactions_shown", stats.totalTransactions))
}
