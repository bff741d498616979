// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// Date bounds are inclusive calendar dates.
type TransactionFilter struct {
	StartDate     *model.Date
	EndDate       *model.Date
	MaxConfidence *float64
	CategoryID    int
	Limit         int
	Offset        int
	// UncorrectedOnly excludes transactions a user already corrected.
	UncorrectedOnly bool
}

// TransactionStore persists ingested transactions.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByID(ctx context.Context, userID int64, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, userID int64, filter TransactionFilter) ([]model.Transaction, error)
}

// CategoryStore persists default and user-defined categories.
type CategoryStore interface {
	GetCategories(ctx context.Context, userID int64) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, userID int64, id int) (*model.Category, error)
	GetCategoryByName(ctx context.Context, userID int64, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, userID int64, id int) error
}

// CorrectionStore records user corrections atomically with the transaction
// update they describe.
type CorrectionStore interface {
	ApplyCorrection(ctx context.Context, txn *model.Transaction, correction *model.Correction) error
	GetCorrections(ctx context.Context, userID int64, transactionID string) ([]model.Correction, error)
	GetCorrectionsSince(ctx context.Context, userID int64, since time.Time) ([]model.Correction, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	TransactionStore
	CategoryStore
	CorrectionStore

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
