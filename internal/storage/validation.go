package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidUser        = errors.New("invalid user id")
	ErrInvalidDateRange   = errors.New("start date must not be after end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidCorrection  = errors.New("invalid correction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateUserID(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUser, userID)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}

func validateCategory(cat *model.Category) error {
	if cat == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := cat.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCategory, err)
	}
	return nil
}

func validateCorrection(c *model.Correction) error {
	if c == nil {
		return fmt.Errorf("%w: correction", ErrNilParameter)
	}
	if c.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidCorrection)
	}
	if c.CorrectedCategoryID <= 0 {
		return fmt.Errorf("%w: missing corrected category", ErrInvalidCorrection)
	}
	if c.CorrectedAt.IsZero() {
		return fmt.Errorf("%w: missing correction time", ErrInvalidCorrection)
	}
	return nil
}

func validateDateRange(start, end *model.Date) error {
	if start != nil && end != nil && start.After(end.Time) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, start, end)
	}
	return nil
}
