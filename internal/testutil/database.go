// Package testutil provides shared fixtures for tests that need a real,
// migrated database.
package testutil

import (
	"context"
	"testing"

	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/storage"
)

// DefaultUserID is the user most fixtures belong to.
const DefaultUserID int64 = 1

// TestDB is a migrated in-memory database with the default categories seeded.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It automatically
// handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	pets := db.CreateCategory("Pets")
//	db.MustSave(testutil.NewTransaction("Swiggy").WithCategory(pets.ID).Build())
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// Session returns a session for DefaultUserID.
func (db *TestDB) Session() model.Session {
	return model.Session{UserID: DefaultUserID, RequestID: "test"}
}

// CreateCategory creates a custom category for DefaultUserID or fails the test.
func (db *TestDB) CreateCategory(name string) *model.Category {
	db.t.Helper()
	cat := &model.Category{
		Name:   name,
		Type:   model.CategoryTypeCustom,
		UserID: DefaultUserID,
	}
	if err := db.Storage.CreateCategory(context.Background(), cat); err != nil {
		db.t.Fatalf("failed to create category %q: %v", name, err)
	}
	return cat
}

// MustSave persists the transactions or fails the test.
func (db *TestDB) MustSave(txns ...model.Transaction) []model.Transaction {
	db.t.Helper()
	for i := range txns {
		if err := db.Storage.SaveTransaction(context.Background(), &txns[i]); err != nil {
			db.t.Fatalf("failed to save transaction %s: %v", txns[i].ID, err)
		}
	}
	return txns
}

// MustGet reloads a transaction for DefaultUserID or fails the test.
func (db *TestDB) MustGet(id string) *model.Transaction {
	db.t.Helper()
	txn, err := db.Storage.GetTransactionByID(context.Background(), DefaultUserID, id)
	if err != nil {
		db.t.Fatalf("failed to load transaction %s: %v", id, err)
	}
	return txn
}
