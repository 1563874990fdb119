package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pvtela-wallet-go/internal/models"
	"pvtela-wallet-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateTransaction normalizes and persists a transaction record. When an
// external transaction id is supplied and a record already carries it, the
// existing record is returned instead of creating a duplicate. The unique
// index closes the remaining race between concurrent duplicate inserts.
func (s *Service) CreateTransaction(ctx context.Context, params store.CreateTransactionParams) (*models.Transaction, error) {
	if params.WalletId == "" {
		return nil, fmt.Errorf("wallet id cannot be empty")
	}
	if !params.Type.IsValid() {
		return nil, fmt.Errorf("invalid transaction type %q", params.Type)
	}
	if !params.Status.IsValid() {
		return nil, fmt.Errorf("invalid transaction status %q", params.Status)
	}
	if params.Amount.LessThanOrEqual(decimal.Zero) && !(params.Type == models.TypeFee && params.Amount.IsZero()) {
		return nil, fmt.Errorf("transaction amount must be positive, got %s", params.Amount.String())
	}

	if params.ExternalTransactionId != "" {
		existing, err := s.FindTransactionByExternalId(ctx, params.ExternalTransactionId)
		if err == nil {
			zap.L().Warn("Duplicate external transaction id, returning existing record",
				zap.String("external_transaction_id", params.ExternalTransactionId),
				zap.String("existing_transaction_id", existing.Id))
			return existing, nil
		}
		if err != store.ErrTransactionNotFound {
			return nil, err
		}
	}

	transaction := &models.Transaction{
		Id:                    uuid.New().String(),
		WalletId:              params.WalletId,
		Type:                  params.Type,
		Amount:                params.Amount,
		Currency:              strings.ToUpper(params.Currency),
		Status:                params.Status,
		Description:           params.Description,
		ExternalTransactionId: params.ExternalTransactionId,
		CreatedAt:             time.Now().UTC(),
	}
	transaction.UpdatedAt = transaction.CreatedAt

	err := insertTransactionTx(ctx, s.db, transaction)
	if err != nil {
		if isUniqueConstraintErr(err) {
			// Lost the insert race: the row that won is the record.
			return s.FindTransactionByExternalId(ctx, params.ExternalTransactionId)
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	zap.L().Info("Transaction created",
		zap.String("transaction_id", transaction.Id),
		zap.String("wallet_id", transaction.WalletId),
		zap.String("type", string(transaction.Type)),
		zap.String("status", string(transaction.Status)),
		zap.String("amount", transaction.Amount.String()))
	return transaction, nil
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertTransactionTx(ctx context.Context, db execer, t *models.Transaction) error {
	_, err := db.ExecContext(ctx, queryInsertTransaction,
		t.Id, t.WalletId, string(t.Type), t.Amount.StringFixed(2), t.Currency,
		string(t.Status), nullableString(t.Description),
		nullableString(t.ExternalTransactionId), t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *Service) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx, queryGetTransaction, transactionId))
}

func (s *Service) FindTransactionByExternalId(ctx context.Context, externalId string) (*models.Transaction, error) {
	return scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionByExternalId, externalId))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var amountStr string
	var description, externalId sql.NullString
	err := row.Scan(&t.Id, &t.WalletId, (*string)(&t.Type), &amountStr, &t.Currency,
		(*string)(&t.Status), &description, &externalId, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
	}
	t.Description = description.String
	t.ExternalTransactionId = externalId.String
	return &t, nil
}

// TransitionTransaction moves a transaction along the allowed-transition
// table. An attempted illegal transition is a conflict, not a silent
// overwrite; the status-gated UPDATE closes concurrent transition races.
func (s *Service) TransitionTransaction(ctx context.Context, params store.TransitionParams) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanTransaction(tx.QueryRowContext(ctx, queryGetTransaction, params.TransactionId))
	if err != nil {
		return nil, err
	}

	updated, err := transitionTransactionTx(ctx, tx, current, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status transition: %w", err)
	}

	zap.L().Info("Transaction transitioned",
		zap.String("transaction_id", updated.Id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)))
	return updated, nil
}

// transitionTransactionTx applies a validated status transition inside an
// open SQL transaction. current must have been read within the same tx.
func transitionTransactionTx(ctx context.Context, tx *sql.Tx, current *models.Transaction, params store.TransitionParams) (*models.Transaction, error) {
	if !current.Status.CanTransitionTo(params.To) {
		return nil, fmt.Errorf("%w: %s -> %s for transaction %s",
			store.ErrTransactionConflict, current.Status, params.To, current.Id)
	}

	updated := *current
	updated.Status = params.To
	updated.Description = appendDescription(current.Description, params.Description)
	if params.ExternalTransactionId != "" {
		updated.ExternalTransactionId = params.ExternalTransactionId
	}
	updated.UpdatedAt = time.Now().UTC()

	result, err := tx.ExecContext(ctx, queryUpdateTransactionStatus,
		string(updated.Status), nullableString(updated.Description),
		nullableString(updated.ExternalTransactionId), updated.UpdatedAt,
		current.Id, string(current.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Another invocation resolved this transaction first.
		return nil, fmt.Errorf("%w: transaction %s no longer in status %s",
			store.ErrTransactionConflict, current.Id, current.Status)
	}
	return &updated, nil
}

// AttachExternalId stores the provider's id on a still-pending transaction
// that does not carry one yet. The unique index rejects an id already bound
// to another record.
func (s *Service) AttachExternalId(ctx context.Context, transactionId, externalId string) error {
	if externalId == "" {
		return fmt.Errorf("external id cannot be empty")
	}

	result, err := s.db.ExecContext(ctx, queryAttachExternalId,
		externalId, time.Now().UTC(), transactionId, string(models.StatusPending))
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: external id %s already bound", store.ErrDuplicateTransaction, externalId)
		}
		return fmt.Errorf("failed to attach external id: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: transaction %s not pending or already bound",
			store.ErrTransactionConflict, transactionId)
	}
	return nil
}

func appendDescription(existing, addition string) string {
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	return existing + " " + addition
}

func (s *Service) GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, walletId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}
