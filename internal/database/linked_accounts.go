package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxLinkedAccounts is the per-user limit on registered withdrawal destinations.
const MaxLinkedAccounts = 2

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// validateAccountDetails enforces the closed tagged variant: exactly the
// payload matching the account type, with all required fields present.
func validateAccountDetails(accountType models.AccountType, details models.AccountDetails) error {
	switch accountType {
	case models.AccountTypeBank:
		if details.Bank == nil || details.PayPal != nil {
			return fmt.Errorf("bank account requires bank details and nothing else")
		}
		if details.Bank.BankName == "" || details.Bank.AccountNumber == "" || details.Bank.AccountHolderName == "" {
			return fmt.Errorf("missing required bank details (bank_name, account_number, account_holder_name)")
		}
	case models.AccountTypePayPal:
		if details.PayPal == nil || details.Bank != nil {
			return fmt.Errorf("paypal account requires paypal details and nothing else")
		}
		if details.PayPal.Email == "" {
			return fmt.Errorf("missing paypal_email for PayPal account")
		}
		if !emailPattern.MatchString(details.PayPal.Email) {
			return fmt.Errorf("invalid PayPal email format")
		}
	default:
		return fmt.Errorf("invalid account type %q, must be 'bank' or 'paypal'", accountType)
	}
	return nil
}

// AddLinkedAccount registers a withdrawal destination for the user, subject
// to payload validation and the per-user limit.
func (s *Service) AddLinkedAccount(ctx context.Context, params store.LinkedAccountParams) (*models.LinkedAccount, error) {
	if params.UserId == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}
	if err := validateAccountDetails(params.AccountType, params.Details); err != nil {
		return nil, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, queryCountLinkedAccounts, params.UserId).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count linked accounts: %w", err)
	}
	if count >= MaxLinkedAccounts {
		return nil, store.ErrLinkedAccountLimit
	}

	detailsJson, err := json.Marshal(params.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode account details: %w", err)
	}

	account := &models.LinkedAccount{
		Id:           uuid.New().String(),
		UserId:       params.UserId,
		AccountType:  params.AccountType,
		Details:      params.Details,
		FriendlyName: params.FriendlyName,
		IsVerified:   false,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, queryInsertLinkedAccount,
		account.Id, account.UserId, string(account.AccountType), string(detailsJson),
		nullableString(account.FriendlyName), account.IsVerified, account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert linked account: %w", err)
	}

	zap.L().Info("Linked account added",
		zap.String("account_id", account.Id),
		zap.String("user_id", account.UserId),
		zap.String("account_type", string(account.AccountType)))
	return account, nil
}

// GetLinkedAccount returns the account only when it belongs to the user.
func (s *Service) GetLinkedAccount(ctx context.Context, accountId, userId string) (*models.LinkedAccount, error) {
	return scanLinkedAccount(s.db.QueryRowContext(ctx, queryGetLinkedAccount, accountId, userId))
}

func (s *Service) ListLinkedAccounts(ctx context.Context, userId string) ([]models.LinkedAccount, error) {
	rows, err := s.db.QueryContext(ctx, queryListLinkedAccounts, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked accounts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var accounts []models.LinkedAccount
	for rows.Next() {
		account, err := scanLinkedAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating linked account rows: %w", err)
	}
	return accounts, nil
}

func (s *Service) RemoveLinkedAccount(ctx context.Context, accountId, userId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteLinkedAccount, accountId, userId)
	if err != nil {
		return fmt.Errorf("failed to remove linked account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrLinkedAccountNotFound
	}

	zap.L().Info("Linked account removed",
		zap.String("account_id", accountId),
		zap.String("user_id", userId))
	return nil
}

func scanLinkedAccount(row rowScanner) (*models.LinkedAccount, error) {
	var account models.LinkedAccount
	var detailsJson string
	var friendlyName sql.NullString
	err := row.Scan(&account.Id, &account.UserId, (*string)(&account.AccountType),
		&detailsJson, &friendlyName, &account.IsVerified, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrLinkedAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan linked account: %w", err)
	}

	if err := json.Unmarshal([]byte(detailsJson), &account.Details); err != nil {
		return nil, fmt.Errorf("failed to decode account details: %w", err)
	}
	account.FriendlyName = friendlyName.String
	return &account, nil
}
