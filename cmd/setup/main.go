package main

import (
	"context"
	"flag"
	"strings"

	"pvtela-wallet-go/internal/common"
	"pvtela-wallet-go/internal/config"

	"go.uber.org/zap"
)

// createWallets ensures a wallet exists for each of the given user ids.
// Re-running against existing users is a no-op.
func createWallets(ctx context.Context, services *common.Services, userIds []string) {
	var created, failed int
	var failedUsers []string

	for _, userId := range userIds {
		wallet, err := services.WalletService.EnsureWallet(ctx, userId)
		if err != nil {
			zap.L().Error("Failed to create wallet",
				zap.String("user_id", userId),
				zap.Error(err))
			failed++
			failedUsers = append(failedUsers, userId)
			continue
		}

		zap.L().Info("Wallet ready",
			zap.String("user_id", userId),
			zap.String("wallet_id", wallet.Id),
			zap.String("balance", wallet.Balance.String()))
		created++
	}

	if failed > 0 {
		zap.L().Warn("Wallet setup completed with some failures",
			zap.Int("wallets_ready", created),
			zap.Int("failed", failed),
			zap.Strings("failed_users", failedUsers))
	} else {
		zap.L().Info("Wallet setup completed successfully",
			zap.Int("wallets_ready", created))
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	usersFlag := flag.String("users", "", "Comma-separated user ids to create wallets for")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	zap.L().Info("Database schema initialized")

	if *usersFlag == "" {
		zap.L().Info("No users supplied, nothing more to do")
		return
	}

	var userIds []string
	for _, userId := range strings.Split(*usersFlag, ",") {
		if trimmed := strings.TrimSpace(userId); trimmed != "" {
			userIds = append(userIds, trimmed)
		}
	}

	createWallets(ctx, services, userIds)
}
