package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/service"
)

const transactionColumns = `
	t.id, t.user_id, t.merchant_name, t.merchant_normalized, t.amount, t.currency,
	t.transaction_date, t.category_id, t.confidence_score, t.alternatives,
	t.is_user_corrected, t.metadata, t.created_at, t.updated_at,
	c.id, c.user_id, c.name, c.category_type, c.icon, c.color, c.description, c.created_at`

const transactionFrom = `
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

// SaveTransaction inserts a newly classified transaction.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	now := time.Now().UTC()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	if txn.UpdatedAt.IsZero() {
		txn.UpdatedAt = txn.CreatedAt
	}

	metadata, err := encodeJSON(txn.Metadata, len(txn.Metadata))
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	alternatives, err := encodeJSON(txn.Alternatives, len(txn.Alternatives))
	if err != nil {
		return fmt.Errorf("failed to encode alternatives: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, merchant_name, merchant_normalized, amount, currency,
			transaction_date, category_id, confidence_score, alternatives,
			is_user_corrected, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.UserID,
		txn.MerchantName,
		txn.MerchantNormalized,
		txn.Amount.String(),
		txn.Currency,
		txn.TransactionDate.String(),
		txn.CategoryID,
		nullableFloat(txn.ConfidenceScore),
		alternatives,
		txn.IsUserCorrected,
		metadata,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
		}
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}

	return nil
}

// GetTransactionByID returns the user's transaction with its category resolved.
// A transaction owned by a different user is reported as not found.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, userID int64, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getTransactionByIDTx(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getTransactionByIDTx(ctx context.Context, q queryable, userID int64, id string) (*model.Transaction, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+transactionFrom+` WHERE t.id = ? AND t.user_id = ?`,
		id, userID)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransactions returns the user's transactions matching filter, oldest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := validateDateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	var (
		conditions = []string{"t.user_id = ?"}
		args       = []any{userID}
	)
	if filter.StartDate != nil {
		conditions = append(conditions, "t.transaction_date >= ?")
		args = append(args, filter.StartDate.String())
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "t.transaction_date <= ?")
		args = append(args, filter.EndDate.String())
	}
	if filter.CategoryID > 0 {
		conditions = append(conditions, "t.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.MaxConfidence != nil {
		conditions = append(conditions, "(t.confidence_score IS NULL OR t.confidence_score < ?)")
		args = append(args, *filter.MaxConfidence)
	}
	if filter.UncorrectedOnly {
		conditions = append(conditions, "t.is_user_corrected = 0")
	}

	query := `SELECT ` + transactionColumns + transactionFrom +
		` WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY t.transaction_date, t.created_at, t.id`

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, *txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// updateTransactionTx writes the mutable classification fields back.
func (s *SQLiteStorage) updateTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) error {
	metadata, err := encodeJSON(txn.Metadata, len(txn.Metadata))
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET category_id = ?, is_user_corrected = ?, metadata = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		txn.CategoryID, txn.IsUserCorrected, metadata, txn.UpdatedAt, txn.ID, txn.UserID)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn          model.Transaction
		amount       string
		date         string
		confidence   sql.NullFloat64
		alternatives string
		metadata     string

		catID        sql.NullInt64
		catUserID    sql.NullInt64
		catName      sql.NullString
		catType      sql.NullString
		catIcon      sql.NullString
		catColor     sql.NullString
		catDesc      sql.NullString
		catCreatedAt sql.NullTime
	)

	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.MerchantName, &txn.MerchantNormalized, &amount, &txn.Currency,
		&date, &txn.CategoryID, &confidence, &alternatives,
		&txn.IsUserCorrected, &metadata, &txn.CreatedAt, &txn.UpdatedAt,
		&catID, &catUserID, &catName, &catType, &catIcon, &catColor, &catDesc, &catCreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s has corrupt amount %q: %w", txn.ID, amount, err)
	}
	if txn.TransactionDate, err = model.ParseDate(date); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}
	if confidence.Valid {
		txn.ConfidenceScore = model.Float64Ptr(confidence.Float64)
	}
	if err := decodeJSON(alternatives, &txn.Alternatives); err != nil {
		return nil, fmt.Errorf("transaction %s has corrupt alternatives: %w", txn.ID, err)
	}
	if err := decodeJSON(metadata, &txn.Metadata); err != nil {
		return nil, fmt.Errorf("transaction %s has corrupt metadata: %w", txn.ID, err)
	}

	if catID.Valid {
		txn.Category = &model.Category{
			ID:          int(catID.Int64),
			UserID:      catUserID.Int64,
			Name:        catName.String,
			Type:        model.CategoryType(catType.String),
			Icon:        catIcon.String,
			Color:       catColor.String,
			Description: catDesc.String,
			CreatedAt:   catCreatedAt.Time,
		}
	}

	return &txn, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// encodeJSON stores empty maps and slices (n == 0) as the empty string.
func encodeJSON(v any, n int) (string, error) {
	if n == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSON(raw string, dest any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}
