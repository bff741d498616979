package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/service"
)

func TestSQLiteStorage_FullWorkflow(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// Step 1: a batch lands with mixed confidence.
	txns := createTestTransactions(6)
	txns[2].ConfidenceScore = nil
	saveAll(t, store, txns)

	// Step 2: the review queue is everything below the auto-accept threshold.
	threshold := 0.85
	queue, err := store.GetTransactions(ctx, testUserID, service.TransactionFilter{
		MaxConfidence:   &threshold,
		UncorrectedOnly: true,
	})
	require.NoError(t, err)
	var queued []string
	for _, txn := range queue {
		queued = append(queued, txn.ID)
	}
	// Confidences are 0.5, 0.6, nil, 0.8, 0.9, 0.5.
	assert.Equal(t, []string{"txn-001", "txn-002", "txn-003", "txn-004", "txn-006"}, queued)

	// Step 3: the user moves one transaction into a new category.
	pets := &model.Category{Name: "Pets", Type: model.CategoryTypeCustom, UserID: testUserID}
	require.NoError(t, store.CreateCategory(ctx, pets))

	at := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
	updated, correction := correctionFor(queue[0], pets.ID, at)
	require.NoError(t, store.ApplyCorrection(ctx, updated, correction))
	require.NoError(t, store.SaveMerchantMapping(ctx, &model.MerchantMapping{
		UserID:             testUserID,
		MerchantNormalized: updated.MerchantNormalized,
		CategoryID:         pets.ID,
		Confidence:         1,
		Source:             model.SourceUser,
	}))

	// Step 4: the corrected transaction leaves the queue.
	queue, err = store.GetTransactions(ctx, testUserID, service.TransactionFilter{
		MaxConfidence:   &threshold,
		UncorrectedOnly: true,
	})
	require.NoError(t, err)
	assert.Len(t, queue, 4)
	for _, txn := range queue {
		assert.NotEqual(t, "txn-001", txn.ID)
	}

	// Step 5: the correction is visible in history and in the mapping.
	history, err := store.GetCorrections(ctx, testUserID, "txn-001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, pets.ID, history[0].CorrectedCategoryID)

	mapping, err := store.GetMerchantMapping(ctx, testUserID, updated.MerchantNormalized)
	require.NoError(t, err)
	assert.Equal(t, "Pets", mapping.CategoryName)

	reloaded, err := store.GetTransactionByID(ctx, testUserID, "txn-001")
	require.NoError(t, err)
	assert.True(t, reloaded.IsUserCorrected)
	assert.Equal(t, "Pets", reloaded.CategoryName())
	assert.Equal(t, "fixed", reloaded.Metadata[model.NoteKey])

	// Step 6: the new category is in use and cannot be deleted.
	err = store.DeleteCategory(ctx, testUserID, pets.ID)
	assert.ErrorIs(t, err, common.ErrCategoryInUse)
}

func TestSQLiteStorage_DataIntegrity(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txn := model.Transaction{
		ID:                 "precise",
		UserID:             testUserID,
		TransactionDate:    model.NewDate(2025, time.March, 31),
		MerchantName:       "Café Coffee Day ☕",
		MerchantNormalized: "café coffee day",
		Amount:             decimal.RequireFromString("1234567.89"),
		Currency:           "INR",
		CategoryID:         1,
		ConfidenceScore:    model.Float64Ptr(0.123456),
		Alternatives: model.Alternatives{
			{CategoryID: 2, CategoryName: "Shopping", Score: 0.1},
		},
		Metadata: model.Metadata{"account": "savings", "ref": "UPI/123"},
	}
	require.NoError(t, store.SaveTransaction(ctx, &txn))

	got, err := store.GetTransactionByID(ctx, testUserID, "precise")
	require.NoError(t, err)

	assert.True(t, txn.Amount.Equal(got.Amount), "amount %s", got.Amount)
	assert.Equal(t, txn.MerchantName, got.MerchantName)
	assert.Equal(t, "2025-03-31", got.TransactionDate.String())
	require.NotNil(t, got.ConfidenceScore)
	assert.InDelta(t, 0.123456, *got.ConfidenceScore, 1e-9)
	require.Len(t, got.Alternatives, 1)
	assert.Equal(t, 2, got.Alternatives[0].CategoryID)
	assert.Equal(t, txn.Metadata, got.Metadata)

	// Saving the same ID twice is refused and leaves the first row intact.
	dup := txn
	dup.Amount = decimal.NewFromInt(1)
	assert.ErrorIs(t, store.SaveTransaction(ctx, &dup), common.ErrDuplicateEntry)

	got, err = store.GetTransactionByID(ctx, testUserID, "precise")
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(got.Amount))
}

func TestSQLiteStorage_Pagination(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	saveAll(t, store, createTestTransactions(10))

	var seen []string
	for offset := 0; offset < 10; offset += 4 {
		page, err := store.GetTransactions(ctx, testUserID, service.TransactionFilter{Limit: 4, Offset: offset})
		require.NoError(t, err)
		for _, txn := range page {
			seen = append(seen, txn.ID)
		}
	}

	require.Len(t, seen, 10)
	assert.Equal(t, "txn-001", seen[0])
	assert.Equal(t, "txn-010", seen[9])
}
