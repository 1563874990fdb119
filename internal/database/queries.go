package database

const (
	// Wallet queries
	queryInsertWallet = `
		INSERT OR IGNORE INTO wallets (id, user_id, balance, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`

	queryGetWallet = `
		SELECT id, user_id, balance, version, created_at, updated_at
		FROM wallets
		WHERE id = ?`

	queryGetWalletByUser = `
		SELECT id, user_id, balance, version, created_at, updated_at
		FROM wallets
		WHERE user_id = ?`

	queryListWallets = `
		SELECT id, user_id, balance, version, created_at, updated_at
		FROM wallets
		ORDER BY created_at`

	queryGetWalletForUpdate = `
		SELECT balance, version
		FROM wallets
		WHERE id = ?`

	queryUpdateWalletBalance = `
		UPDATE wallets
		SET balance = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE external_transaction_id = ? LIMIT 1`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, wallet_id, type, amount, currency, status, description,
			external_transaction_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransaction = `
		SELECT id, wallet_id, type, amount, currency, status, description,
		       external_transaction_id, created_at, updated_at
		FROM transactions
		WHERE id = ?`

	queryGetTransactionByExternalId = `
		SELECT id, wallet_id, type, amount, currency, status, description,
		       external_transaction_id, created_at, updated_at
		FROM transactions
		WHERE external_transaction_id = ?`

	queryUpdateTransactionStatus = `
		UPDATE transactions
		SET status = ?, description = ?, external_transaction_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	queryAttachExternalId = `
		UPDATE transactions
		SET external_transaction_id = ?, updated_at = ?
		WHERE id = ? AND status = ? AND external_transaction_id IS NULL`

	queryGetTransactionHistory = `
		SELECT id, wallet_id, type, amount, currency, status, description,
		       external_transaction_id, created_at, updated_at
		FROM transactions
		WHERE wallet_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	// Linked account queries
	queryCountLinkedAccounts = `
		SELECT COUNT(*) FROM linked_accounts WHERE user_id = ?`

	queryInsertLinkedAccount = `
		INSERT INTO linked_accounts (id, user_id, account_type, details, friendly_name, is_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetLinkedAccount = `
		SELECT id, user_id, account_type, details, friendly_name, is_verified, created_at
		FROM linked_accounts
		WHERE id = ? AND user_id = ?`

	queryListLinkedAccounts = `
		SELECT id, user_id, account_type, details, friendly_name, is_verified, created_at
		FROM linked_accounts
		WHERE user_id = ?
		ORDER BY created_at`

	queryDeleteLinkedAccount = `
		DELETE FROM linked_accounts WHERE id = ? AND user_id = ?`
)
