package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

const testUserID int64 = 42

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create test transactions, one per day starting 2025-01-01.
func createTestTransactions(count int) []model.Transaction {
	txns := make([]model.Transaction, count)
	start := model.NewDate(2025, time.January, 1)

	for i := 0; i < count; i++ {
		txns[i] = model.Transaction{
			ID:                 fmt.Sprintf("txn-%03d", i+1),
			UserID:             testUserID,
			TransactionDate:    start.AddDays(i),
			MerchantName:       fmt.Sprintf("Merchant #%d", (i%3)+1),
			MerchantNormalized: fmt.Sprintf("merchant %d", (i%3)+1),
			Amount:             decimal.NewFromInt(int64(i+1) * 100),
			Currency:           "INR",
			CategoryID:         (i % 3) + 1,
			ConfidenceScore:    model.Float64Ptr(0.5 + float64(i%5)*0.1),
		}
	}
	return txns
}

func saveAll(t *testing.T, store *SQLiteStorage, txns []model.Transaction) {
	t.Helper()
	ctx := context.Background()
	for i := range txns {
		require.NoError(t, store.SaveTransaction(ctx, &txns[i]))
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates nested directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "a", "b", "fincat.db")
		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.Equal(t, dbPath, store.Path())
		assert.NoError(t, store.Ping(context.Background()))
	})

	t.Run("in memory", func(t *testing.T) {
		store, err := NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		require.NoError(t, store.Migrate(context.Background()))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("  ")
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestMigrate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	for _, table := range []string{"categories", "transactions", "corrections"} {
		var count int
		err := store.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}
}

func TestMigrate_SeedsDefaultCategories(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	cats, err := store.GetCategories(context.Background(), testUserID)
	require.NoError(t, err)

	defaults := model.DefaultCategories()
	require.Len(t, cats, len(defaults))
	for i, want := range defaults {
		assert.Equal(t, want.ID, cats[i].ID)
		assert.Equal(t, want.Name, cats[i].Name)
		assert.Equal(t, want.Icon, cats[i].Icon)
		assert.True(t, cats[i].IsDefault())
	}
}

func TestMigrate_NilContext(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	//nolint:staticcheck // exercising validation
	err := store.Migrate(nil)
	assert.ErrorIs(t, err, ErrNilContext)
}
