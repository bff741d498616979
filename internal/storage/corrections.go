package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// ApplyCorrection updates the transaction's category, correction flag and
// metadata and appends the audit row in a single database transaction.
// The correction's ID is filled in on success.
func (s *SQLiteStorage) ApplyCorrection(ctx context.Context, txn *model.Transaction, correction *model.Correction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if err := validateCorrection(correction); err != nil {
		return err
	}
	if correction.TransactionID != txn.ID {
		return fmt.Errorf("%w: correction for %s applied to %s", ErrInvalidCorrection, correction.TransactionID, txn.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := s.getCategoryByIDTx(ctx, tx, txn.UserID, txn.CategoryID); err != nil {
		return err
	}

	if err := s.updateTransactionTx(ctx, tx, txn); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO corrections (
			transaction_id, user_id, merchant_normalized,
			original_category_id, corrected_category_id, note, corrected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		correction.TransactionID, correction.UserID, correction.MerchantNormalized,
		correction.OriginalCategoryID, correction.CorrectedCategoryID,
		correction.Note, correction.CorrectedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record correction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get correction ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit correction: %w", err)
	}

	correction.ID = id
	return nil
}

// GetCorrections returns the correction history of one transaction, oldest first.
func (s *SQLiteStorage) GetCorrections(ctx context.Context, userID int64, transactionID string) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}
	return s.queryCorrections(ctx, userID, `AND transaction_id = ?`, transactionID)
}

// GetCorrectionsSince returns every correction the user made at or after since.
func (s *SQLiteStorage) GetCorrectionsSince(ctx context.Context, userID int64, since time.Time) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryCorrections(ctx, userID, `AND corrected_at >= ?`, since.UTC())
}

func (s *SQLiteStorage) queryCorrections(ctx context.Context, userID int64, clause string, args ...any) ([]model.Correction, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, user_id, merchant_normalized,
			original_category_id, corrected_category_id, note, corrected_at
		FROM corrections
		WHERE user_id = ? `+clause+`
		ORDER BY corrected_at, id`, append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var corrections []model.Correction
	for rows.Next() {
		var c model.Correction
		if err := rows.Scan(&c.ID, &c.TransactionID, &c.UserID, &c.MerchantNormalized,
			&c.OriginalCategoryID, &c.CorrectedCategoryID, &c.Note, &c.CorrectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		corrections = append(corrections, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corrections: %w", err)
	}

	return corrections, nil
}
