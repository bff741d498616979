package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// GetMerchantMapping retrieves the user's mapping for a normalized merchant.
func (s *SQLiteStorage) GetMerchantMapping(ctx context.Context, userID int64, merchant string) (*model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}

	var m model.MerchantMapping
	err := s.db.QueryRowContext(ctx, `
		SELECT m.user_id, m.merchant_normalized, m.category_id, COALESCE(c.name, ''),
			m.confidence, m.source, m.use_count, m.updated_at
		FROM merchant_mappings m
		LEFT JOIN categories c ON c.id = m.category_id
		WHERE m.user_id = ? AND m.merchant_normalized = ?
	`, userID, merchant).Scan(
		&m.UserID,
		&m.MerchantNormalized,
		&m.CategoryID,
		&m.CategoryName,
		&m.Confidence,
		&m.Source,
		&m.UseCount,
		&m.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("merchant mapping %q: %w", merchant, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant mapping: %w", err)
	}

	return &m, nil
}

// SaveMerchantMapping inserts or replaces a mapping, bumping its use count.
// A classifier-sourced mapping never overwrites one the user set.
func (s *SQLiteStorage) SaveMerchantMapping(ctx context.Context, m *model.MerchantMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid merchant mapping: %w", err)
	}

	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_mappings (user_id, merchant_normalized, category_id, confidence, source, use_count, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(user_id, merchant_normalized) DO UPDATE SET
			category_id = excluded.category_id,
			confidence = excluded.confidence,
			source = excluded.source,
			use_count = merchant_mappings.use_count + 1,
			updated_at = excluded.updated_at
		WHERE merchant_mappings.source != 'user' OR excluded.source = 'user'
	`, m.UserID, m.MerchantNormalized, m.CategoryID, m.Confidence, string(m.Source), m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save merchant mapping: %w", err)
	}

	return nil
}

// DeleteMerchantMapping removes a mapping; deleting a missing mapping is not an error.
func (s *SQLiteStorage) DeleteMerchantMapping(ctx context.Context, userID int64, merchant string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM merchant_mappings WHERE user_id = ? AND merchant_normalized = ?`,
		userID, merchant); err != nil {
		return fmt.Errorf("failed to delete merchant mapping: %w", err)
	}
	return nil
}
