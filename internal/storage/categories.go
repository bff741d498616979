package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

const categoryColumns = `id, user_id, name, category_type, icon, color, description, created_at`

// GetCategories returns the default categories plus the user's own, ordered by id.
func (s *SQLiteStorage) GetCategories(ctx context.Context, userID int64) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE category_type = 'default' OR user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		categories = append(categories, *cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "user_id", userID, "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a category visible to the user.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, userID int64, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoryByIDTx(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getCategoryByIDTx(ctx context.Context, q queryable, userID int64, id int) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE id = ? AND (category_type = 'default' OR user_id = ?)`, id, userID)

	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	return cat, err
}

// GetCategoryByName returns a category visible to the user by case-insensitive name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, userID int64, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE name = ? COLLATE NOCASE AND (category_type = 'default' OR user_id = ?)
		ORDER BY category_type
		LIMIT 1`, strings.TrimSpace(name), userID)

	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
	return cat, err
}

// CreateCategory stores a new custom category and fills in its ID.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	if category.Type != model.CategoryTypeCustom {
		return fmt.Errorf("%w: only custom categories can be created", common.ErrForbidden)
	}

	if existing, err := s.GetCategoryByName(ctx, category.UserID, category.Name); err == nil {
		return fmt.Errorf("%w: category %q already exists (id %d)", common.ErrDuplicateEntry, existing.Name, existing.ID)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, name, category_type, icon, color, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category.UserID, strings.TrimSpace(category.Name), string(category.Type),
		category.Icon, category.Color, category.Description, now)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category ID: %w", err)
	}

	category.ID = int(id)
	category.CreatedAt = now

	slog.Info("created new category", "name", category.Name, "id", id, "user_id", category.UserID)
	return nil
}

// UpdateCategory renames or restyles one of the user's custom categories.
// category.ID and category.UserID select the row; CreatedAt is filled in
// from the stored row.
func (s *SQLiteStorage) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.getCategoryByIDTx(ctx, tx, category.UserID, category.ID)
	if err != nil {
		return err
	}
	if current.IsDefault() {
		return fmt.Errorf("%w: default category %q cannot be changed", common.ErrForbidden, current.Name)
	}

	name := strings.TrimSpace(category.Name)
	var clash int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM categories
		WHERE name = ? COLLATE NOCASE AND id != ? AND (category_type = 'default' OR user_id = ?)`,
		name, category.ID, category.UserID).Scan(&clash); err != nil {
		return fmt.Errorf("failed to check category name: %w", err)
	}
	if clash > 0 {
		return fmt.Errorf("%w: category %q already exists", common.ErrDuplicateEntry, name)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE categories SET name = ?, icon = ?, color = ?, description = ?
		WHERE id = ? AND user_id = ?`,
		name, category.Icon, category.Color, category.Description, category.ID, category.UserID); err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category update: %w", err)
	}

	category.Name = name
	category.Type = current.Type
	category.CreatedAt = current.CreatedAt
	slog.Info("updated category", "name", name, "id", category.ID, "user_id", category.UserID)
	return nil
}

// DeleteCategory removes one of the user's custom categories. Default
// categories and categories still assigned to transactions are refused.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, userID int64, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUserID(userID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cat, err := s.getCategoryByIDTx(ctx, tx, userID, id)
	if err != nil {
		return err
	}
	if cat.IsDefault() {
		return fmt.Errorf("%w: default category %q cannot be deleted", common.ErrForbidden, cat.Name)
	}

	var inUse int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE category_id = ?`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("failed to count category usage: %w", err)
	}
	if inUse > 0 {
		return fmt.Errorf("%w: %q has %d transactions", common.ErrCategoryInUse, cat.Name, inUse)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category deletion: %w", err)
	}

	slog.Info("deleted category", "name", cat.Name, "id", id, "user_id", userID)
	return nil
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		cat       model.Category
		catType   string
		createdAt sql.NullTime
	)
	err := row.Scan(&cat.ID, &cat.UserID, &cat.Name, &catType, &cat.Icon, &cat.Color, &cat.Description, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	cat.Type = model.CategoryType(catType)
	cat.CreatedAt = createdAt.Time
	return &cat, nil
}
