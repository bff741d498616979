package review

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaikumar96/fincategorizer/internal/classifier"
	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/service"
	"github.com/Jaikumar96/fincategorizer/internal/testutil"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

var fixedNow = time.Date(2025, time.February, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *testutil.TestDB, *classifier.MemoryCache) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cache := classifier.NewMemoryCache(time.Hour)
	t.Cleanup(cache.Close)
	svc := NewService(db.Storage, Options{
		Cache: cache,
		Now:   func() time.Time { return fixedNow },
	})
	return svc, db, cache
}

func TestCorrect(t *testing.T) {
	svc, db, cache := newTestService(t)
	ctx := context.Background()

	original := db.MustSave(testutil.NewTransaction("swiggy").WithConfidence(0.55).Build())[0]

	updated, err := svc.Correct(ctx, db.Session(), original.ID, 1, "work lunch")
	require.NoError(t, err)

	assert.Equal(t, 1, updated.CategoryID)
	assert.Equal(t, "Food & Dining", updated.CategoryName())
	assert.True(t, updated.IsUserCorrected)
	assert.Equal(t, "work lunch", updated.Metadata[model.NoteKey])

	reloaded := db.MustGet(original.ID)
	assert.Equal(t, 1, reloaded.CategoryID)
	assert.True(t, reloaded.IsUserCorrected)
	require.NotNil(t, reloaded.ConfidenceScore)
	assert.InDelta(t, 0.55, *reloaded.ConfidenceScore, 1e-9, "confidence is never rewritten")

	history, err := svc.History(ctx, db.Session(), original.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.OthersCategoryID, history[0].OriginalCategoryID)
	assert.Equal(t, 1, history[0].CorrectedCategoryID)
	assert.Equal(t, "work lunch", history[0].Note)
	assert.True(t, fixedNow.Equal(history[0].CorrectedAt))

	mapping, ok, err := cache.Get(ctx, testutil.DefaultUserID, "swiggy")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, mapping.CategoryID)
	assert.Equal(t, model.SourceUser, mapping.Source)
	assert.InDelta(t, 1.0, mapping.Confidence, 1e-9)
}

func TestCorrect_NotesAccumulate(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	txn := db.MustSave(testutil.NewTransaction("uber").Build())[0]

	_, err := svc.Correct(ctx, db.Session(), txn.ID, 3, "commute")
	require.NoError(t, err)
	_, err = svc.Correct(ctx, db.Session(), txn.ID, 8, "")
	require.NoError(t, err)
	updated, err := svc.Correct(ctx, db.Session(), txn.ID, 3, "actually a commute")
	require.NoError(t, err)

	assert.Equal(t, "commute; actually a commute", updated.Metadata[model.NoteKey])

	history, err := svc.History(ctx, db.Session(), txn.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestCorrect_SameCategoryStillCounts(t *testing.T) {
	svc, db, _ := newTestService(t)
	txn := db.MustSave(testutil.NewTransaction("misc").Build())[0]

	updated, err := svc.Correct(context.Background(), db.Session(), txn.ID, model.OthersCategoryID, "")
	require.NoError(t, err)
	assert.True(t, updated.IsUserCorrected)
	assert.Equal(t, model.OthersCategoryID, updated.CategoryID)
}

func TestCorrect_NotFound(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	txn := db.MustSave(testutil.NewTransaction("zomato").Build())[0]

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := svc.Correct(ctx, db.Session(), "missing", 1, "")
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.Correct(ctx, db.Session(), txn.ID, 999, "note")
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Contains(t, err.Error(), "999")
	})

	t.Run("another user's transaction", func(t *testing.T) {
		other := model.Session{UserID: 2}
		_, err := svc.Correct(ctx, other, txn.ID, 1, "")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("another user's category", func(t *testing.T) {
		theirs := &model.Category{Name: "Theirs", Type: model.CategoryTypeCustom, UserID: 2}
		require.NoError(t, db.Storage.CreateCategory(ctx, theirs))
		_, err := svc.Correct(ctx, db.Session(), txn.ID, theirs.ID, "")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	reloaded := db.MustGet(txn.ID)
	assert.False(t, reloaded.IsUserCorrected)
	assert.Equal(t, model.OthersCategoryID, reloaded.CategoryID)
	assert.Empty(t, reloaded.Metadata[model.NoteKey])

	history, err := svc.History(ctx, db.Session(), txn.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCorrect_Validation(t *testing.T) {
	svc, db, _ := newTestService(t)

	_, err := svc.Correct(context.Background(), model.Session{}, "id", 1, "")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Correct(context.Background(), db.Session(), "  ", 1, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCorrect_CustomCategory(t *testing.T) {
	svc, db, _ := newTestService(t)
	pets := db.CreateCategory("Pets")
	txn := db.MustSave(testutil.NewTransaction("heads up for tails").Build())[0]

	updated, err := svc.Correct(context.Background(), db.Session(), txn.ID, pets.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Pets", updated.CategoryName())
}

func TestCorrect_ConcurrentLastWriterWins(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	txn := db.MustSave(testutil.NewTransaction("amazon").Build())[0]

	categories := []int{1, 2, 3, 4, 5, 6, 7, 8}
	var wg sync.WaitGroup
	for _, cat := range categories {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Correct(ctx, db.Session(), txn.ID, cat, fmt.Sprintf("to %d", cat))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := svc.History(ctx, db.Session(), txn.ID)
	require.NoError(t, err)
	require.Len(t, history, len(categories))

	// Serialized corrections chain: each one starts from the previous result.
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].CorrectedCategoryID, history[i].OriginalCategoryID)
	}

	final := db.MustGet(txn.ID)
	assert.Equal(t, history[len(history)-1].CorrectedCategoryID, final.CategoryID)
}

func TestVerify(t *testing.T) {
	svc, db, _ := newTestService(t)
	txn := db.MustSave(testutil.NewTransaction("bigbasket").WithCategory(2).WithConfidence(0.7).Build())[0]

	updated, err := svc.Verify(context.Background(), db.Session(), txn.ID, "looks right")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CategoryID)
	assert.True(t, updated.IsUserCorrected)
	assert.Equal(t, "looks right", updated.Metadata[model.NoteKey])

	_, err = svc.Verify(context.Background(), db.Session(), "nope", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestQueue(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	db.MustSave(
		testutil.NewTransaction("auto").WithID("auto").WithConfidence(0.9).Build(),
		testutil.NewTransaction("edge").WithID("edge").WithConfidence(0.85).Build(),
		testutil.NewTransaction("review").WithID("review").WithConfidence(0.7).Build(),
		testutil.NewTransaction("low").WithID("low").WithConfidence(0.3).Build(),
		testutil.NewTransaction("none").WithID("none").WithoutConfidence().Build(),
		testutil.NewTransaction("fixed").WithID("fixed").WithConfidence(0.2).Corrected().Build(),
		testutil.NewTransaction("other").WithID("other").WithUser(2).WithConfidence(0.1).Build(),
	)

	items, err := svc.Queue(ctx, db.Session(), service.TransactionFilter{})
	require.NoError(t, err)

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Transaction.ID
	}
	assert.Equal(t, []string{"none", "low", "review"}, ids)
	assert.Equal(t, triage.LowConfidence, items[0].Tier)
	assert.Equal(t, triage.LowConfidence, items[1].Tier)
	assert.Equal(t, triage.NeedsReview, items[2].Tier)

	limited, err := svc.Queue(ctx, db.Session(), service.TransactionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "low", limited[0].Transaction.ID)

	past, err := svc.Queue(ctx, db.Session(), service.TransactionFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)

	_, err = svc.Correct(ctx, db.Session(), "low", 1, "")
	require.NoError(t, err)
	items, err = svc.Queue(ctx, db.Session(), service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2, "corrected transactions leave the queue")
}

type failingCache struct{}

func (failingCache) Get(context.Context, int64, string) (model.MerchantMapping, bool, error) {
	return model.MerchantMapping{}, false, assert.AnError
}

func (failingCache) Set(context.Context, model.MerchantMapping) error { return assert.AnError }

func TestCorrect_CacheFailureDoesNotFailCorrection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewService(db.Storage, Options{Cache: failingCache{}})
	txn := db.MustSave(testutil.NewTransaction("ola").Build())[0]

	updated, err := svc.Correct(context.Background(), db.Session(), txn.ID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 3, updated.CategoryID)
}

func TestQueue_AttachesLearnedMapping(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	db.MustSave(
		testutil.NewTransaction("Acme").WithID("first").WithConfidence(0.4).Build(),
		testutil.NewTransaction("Acme").WithID("second").WithConfidence(0.5).Build(),
		testutil.NewTransaction("Corner Store").WithID("third").WithConfidence(0.6).Build(),
	)

	_, err := svc.Correct(ctx, db.Session(), "first", 4, "")
	require.NoError(t, err)

	items, err := svc.Queue(ctx, db.Session(), service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "second", items[0].Transaction.ID)
	require.NotNil(t, items[0].Learned)
	assert.Equal(t, 4, items[0].Learned.CategoryID)
	assert.Equal(t, model.SourceUser, items[0].Learned.Source)
	assert.Equal(t, model.OthersCategoryID, items[0].Transaction.CategoryID, "the stored category is untouched")

	assert.Equal(t, "third", items[1].Transaction.ID)
	assert.Nil(t, items[1].Learned)
}
