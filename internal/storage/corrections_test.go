package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

func correctionFor(txn model.Transaction, to int, at time.Time) (*model.Transaction, *model.Correction) {
	updated := txn
	updated.CategoryID = to
	updated.IsUserCorrected = true
	updated.UpdatedAt = at
	updated.Metadata = txn.Metadata.WithNote("fixed")

	return &updated, &model.Correction{
		TransactionID:       txn.ID,
		UserID:              txn.UserID,
		MerchantNormalized:  txn.MerchantNormalized,
		OriginalCategoryID:  txn.CategoryID,
		CorrectedCategoryID: to,
		Note:                "fixed",
		CorrectedAt:         at,
	}
}

func TestApplyCorrection(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(1)
	saveAll(t, store, txns)

	at := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	updated, correction := correctionFor(txns[0], 4, at)
	require.NoError(t, store.ApplyCorrection(ctx, updated, correction))
	assert.NotZero(t, correction.ID)

	got, err := store.GetTransactionByID(ctx, testUserID, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CategoryID)
	assert.Equal(t, "Shopping", got.Category.Name)
	assert.True(t, got.IsUserCorrected)
	assert.Equal(t, "fixed", got.Metadata[model.NoteKey])
	require.NotNil(t, got.ConfidenceScore)
	assert.Equal(t, *txns[0].ConfidenceScore, *got.ConfidenceScore)

	history, err := store.GetCorrections(ctx, testUserID, txns[0].ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].OriginalCategoryID)
	assert.Equal(t, 4, history[0].CorrectedCategoryID)
	assert.Equal(t, "merchant 1", history[0].MerchantNormalized)
	assert.True(t, history[0].CorrectedAt.Equal(at))
}

func TestApplyCorrection_UnknownCategoryLeavesTransactionUntouched(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(1)
	saveAll(t, store, txns)

	updated, correction := correctionFor(txns[0], 999, time.Now())
	err := store.ApplyCorrection(ctx, updated, correction)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err := store.GetTransactionByID(ctx, testUserID, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, txns[0].CategoryID, got.CategoryID)
	assert.False(t, got.IsUserCorrected)

	history, err := store.GetCorrections(ctx, testUserID, txns[0].ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApplyCorrection_UnknownTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	txn := createTestTransactions(1)[0]
	updated, correction := correctionFor(txn, 2, time.Now())
	err := store.ApplyCorrection(context.Background(), updated, correction)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApplyCorrection_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txn := createTestTransactions(1)[0]
	updated, correction := correctionFor(txn, 2, time.Now())

	correction.TransactionID = "something-else"
	assert.ErrorIs(t, store.ApplyCorrection(ctx, updated, correction), ErrInvalidCorrection)

	assert.ErrorIs(t, store.ApplyCorrection(ctx, updated, nil), ErrNilParameter)
}

func TestGetCorrectionsSince(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(2)
	saveAll(t, store, txns)

	early := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)

	u1, c1 := correctionFor(txns[0], 5, early)
	require.NoError(t, store.ApplyCorrection(ctx, u1, c1))
	u2, c2 := correctionFor(txns[1], 6, late)
	require.NoError(t, store.ApplyCorrection(ctx, u2, c2))

	got, err := store.GetCorrectionsSince(ctx, testUserID, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, txns[1].ID, got[0].TransactionID)

	none, err := store.GetCorrectionsSince(ctx, testUserID+1, early)
	require.NoError(t, err)
	assert.Empty(t, none)
}
