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

func TestSaveTransaction_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txn := model.Transaction{
		ID:                 "txn-round-trip",
		UserID:             testUserID,
		TransactionDate:    model.NewDate(2025, time.February, 1),
		MerchantName:       "SWIGGY*Order 1234",
		MerchantNormalized: "swiggyorder 1234",
		Amount:             decimal.RequireFromString("1234.56"),
		Currency:           "INR",
		CategoryID:         1,
		ConfidenceScore:    model.Float64Ptr(0.92),
		Alternatives: model.Alternatives{
			{CategoryID: 2, CategoryName: "Groceries", Score: 0.05},
		},
		Metadata: model.Metadata{"fitid": "abc"},
	}
	require.NoError(t, store.SaveTransaction(ctx, &txn))
	assert.False(t, txn.CreatedAt.IsZero())

	got, err := store.GetTransactionByID(ctx, testUserID, txn.ID)
	require.NoError(t, err)

	assert.Equal(t, txn.MerchantName, got.MerchantName)
	assert.True(t, txn.Amount.Equal(got.Amount), "amount %s != %s", txn.Amount, got.Amount)
	assert.Equal(t, "2025-02-01", got.TransactionDate.String())
	require.NotNil(t, got.ConfidenceScore)
	assert.InDelta(t, 0.92, *got.ConfidenceScore, 1e-9)
	assert.False(t, got.IsUserCorrected)
	assert.Equal(t, "abc", got.Metadata["fitid"])
	require.Len(t, got.Alternatives, 1)
	assert.Equal(t, 2, got.Alternatives[0].CategoryID)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Food & Dining", got.Category.Name)
}

func TestSaveTransaction_NullConfidence(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txn := createTestTransactions(1)[0]
	txn.ConfidenceScore = nil
	require.NoError(t, store.SaveTransaction(ctx, &txn))

	got, err := store.GetTransactionByID(ctx, testUserID, txn.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ConfidenceScore)
	assert.Nil(t, got.Metadata)
}

func TestSaveTransaction_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	err := store.SaveTransaction(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)

	bad := createTestTransactions(1)[0]
	bad.Amount = decimal.NewFromInt(-5)
	assert.ErrorIs(t, store.SaveTransaction(ctx, &bad), ErrInvalidTransaction)

	dup := createTestTransactions(1)[0]
	require.NoError(t, store.SaveTransaction(ctx, &dup))
	again := createTestTransactions(1)[0]
	assert.ErrorIs(t, store.SaveTransaction(ctx, &again), common.ErrDuplicateEntry)
}

func TestGetTransactionByID_ScopedToUser(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(1)
	saveAll(t, store, txns)

	_, err := store.GetTransactionByID(ctx, testUserID+1, txns[0].ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetTransactionByID(ctx, testUserID, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetTransactions_Filters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(10)
	saveAll(t, store, txns)

	other := createTestTransactions(1)[0]
	other.ID = "other-user"
	other.UserID = testUserID + 1
	saveAll(t, store, []model.Transaction{other})

	start := model.NewDate(2025, time.January, 3)
	end := model.NewDate(2025, time.January, 6)
	threshold := 0.65

	tests := []struct {
		name    string
		filter  service.TransactionFilter
		wantIDs []string
	}{
		{
			name:   "all for user",
			filter: service.TransactionFilter{},
			wantIDs: []string{"txn-001", "txn-002", "txn-003", "txn-004", "txn-005",
				"txn-006", "txn-007", "txn-008", "txn-009", "txn-010"},
		},
		{
			name:    "inclusive date range",
			filter:  service.TransactionFilter{StartDate: &start, EndDate: &end},
			wantIDs: []string{"txn-003", "txn-004", "txn-005", "txn-006"},
		},
		{
			name:    "by category",
			filter:  service.TransactionFilter{CategoryID: 2},
			wantIDs: []string{"txn-002", "txn-005", "txn-008"},
		},
		{
			name:    "below confidence",
			filter:  service.TransactionFilter{MaxConfidence: &threshold},
			wantIDs: []string{"txn-001", "txn-002", "txn-006", "txn-007"},
		},
		{
			name:    "paged",
			filter:  service.TransactionFilter{Limit: 2, Offset: 3},
			wantIDs: []string{"txn-004", "txn-005"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetTransactions(ctx, testUserID, tt.filter)
			require.NoError(t, err)

			ids := make([]string, len(got))
			for i, txn := range got {
				ids[i] = txn.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGetTransactions_InvalidRange(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	start := model.NewDate(2025, time.March, 1)
	end := model.NewDate(2025, time.February, 1)
	_, err := store.GetTransactions(context.Background(), testUserID,
		service.TransactionFilter{StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = store.GetTransactions(context.Background(), 0, service.TransactionFilter{})
	assert.ErrorIs(t, err, ErrInvalidUser)
}
