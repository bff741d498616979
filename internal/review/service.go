// Package review applies user corrections to classified transactions and
// builds the queue of transactions that still need a human decision.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Jaikumar96/fincategorizer/internal/classifier"
	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/metrics"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/service"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

// Store is the persistence the review service needs.
type Store interface {
	GetTransactionByID(ctx context.Context, userID int64, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) ([]model.Transaction, error)
	GetCategoryByID(ctx context.Context, userID int64, id int) (*model.Category, error)
	ApplyCorrection(ctx context.Context, txn *model.Transaction, correction *model.Correction) error
	GetCorrections(ctx context.Context, userID int64, transactionID string) ([]model.Correction, error)
}

// Options configures a Service. Every field is optional.
type Options struct {
	// Cache receives a user mapping for every correction. Queue reads it
	// back to show what the user chose for the merchant before.
	Cache      classifier.MerchantCache
	Locker     Locker
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
	Thresholds triage.Thresholds
}

// Service corrects, verifies and lists transactions awaiting review.
type Service struct {
	store      Store
	cache      classifier.MerchantCache
	locker     Locker
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	thresholds triage.Thresholds
}

// NewService creates a Service. Without a Locker an in-process LocalLocker
// is used.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:      store,
		cache:      opts.Cache,
		locker:     opts.Locker,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
		thresholds: opts.Thresholds,
	}
	if s.locker == nil {
		s.locker = NewLocalLocker()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.thresholds == (triage.Thresholds{}) {
		s.thresholds = triage.DefaultThresholds()
	}
	return s
}

// QueueItem is a transaction in the review queue with its tier. Learned is
// the merchant mapping on record when it names a different category than
// the classifier picked.
type QueueItem struct {
	Learned     *model.MerchantMapping `json:"learned,omitempty"`
	Tier        triage.Tier            `json:"tier"`
	Transaction model.Transaction      `json:"transaction"`
}

// Correct reassigns a transaction to categoryID on behalf of the session's
// user and marks it user-corrected, even when the category is unchanged.
// A non-empty note is appended to the transaction's notes. The confidence
// score is never touched.
//
// Unknown transactions and categories, including ones owned by another
// user, fail with common.ErrNotFound and nothing is written. Concurrent
// corrections of one transaction are serialized and the last one wins.
func (s *Service) Correct(ctx context.Context, session model.Session, transactionID string, categoryID int, note string) (*model.Transaction, error) {
	return s.apply(ctx, session, transactionID, note, func(*model.Transaction) int {
		return categoryID
	})
}

// Verify confirms the transaction's current category. It is a correction to
// the same category and counts as one.
func (s *Service) Verify(ctx context.Context, session model.Session, transactionID, note string) (*model.Transaction, error) {
	return s.apply(ctx, session, transactionID, note, func(txn *model.Transaction) int {
		return txn.CategoryID
	})
}

func (s *Service) apply(ctx context.Context, session model.Session, transactionID, note string, target func(*model.Transaction) int) (*model.Transaction, error) {
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, common.NewValidationError("transactionId", "", "is required")
	}

	unlock, err := s.locker.Lock(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	txn, err := s.store.GetTransactionByID(ctx, session.UserID, transactionID)
	if err != nil {
		return nil, err
	}

	categoryID := target(txn)
	category, err := s.store.GetCategoryByID(ctx, session.UserID, categoryID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	originalID := txn.CategoryID
	note = strings.TrimSpace(note)

	updated := *txn
	updated.CategoryID = category.ID
	updated.Category = category
	updated.IsUserCorrected = true
	updated.Metadata = txn.Metadata.WithNote(note)
	updated.UpdatedAt = now

	correction := &model.Correction{
		TransactionID:       txn.ID,
		UserID:              session.UserID,
		MerchantNormalized:  txn.MerchantNormalized,
		OriginalCategoryID:  originalID,
		CorrectedCategoryID: category.ID,
		Note:                note,
		CorrectedAt:         now,
	}
	if err := s.store.ApplyCorrection(ctx, &updated, correction); err != nil {
		return nil, fmt.Errorf("failed to apply correction: %w", err)
	}

	changed := originalID != category.ID
	s.metrics.RecordCorrection(changed)
	s.learn(ctx, &updated, now)

	s.logger.Info("Transaction corrected",
		"user_id", session.UserID,
		"request_id", session.RequestID,
		"transaction_id", txn.ID,
		"from", originalID,
		"to", category.ID,
		"changed", changed)

	return &updated, nil
}

// learn records the user's choice for the merchant. Cache failures are
// logged; the correction itself already succeeded.
func (s *Service) learn(ctx context.Context, txn *model.Transaction, now time.Time) {
	if s.cache == nil || txn.MerchantNormalized == "" {
		return
	}
	err := s.cache.Set(ctx, model.MerchantMapping{
		UserID:             txn.UserID,
		MerchantNormalized: txn.MerchantNormalized,
		CategoryID:         txn.CategoryID,
		CategoryName:       txn.CategoryName(),
		Confidence:         1.0,
		Source:             model.SourceUser,
		UpdatedAt:          now,
	})
	if err != nil {
		s.logger.Warn("Failed to remember merchant mapping",
			"merchant", txn.MerchantNormalized,
			"error", err)
	}
}

// Queue returns the user's uncorrected transactions whose tier requires
// review, lowest confidence first. A missing score sorts before every score.
// filter.Limit and filter.Offset apply to the sorted queue.
func (s *Service) Queue(ctx context.Context, session model.Session, filter service.TransactionFilter) ([]QueueItem, error) {
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	limit, offset := filter.Limit, filter.Offset
	filter.Limit, filter.Offset = 0, 0
	filter.UncorrectedOnly = true
	if filter.MaxConfidence == nil || *filter.MaxConfidence > s.thresholds.AutoAccept {
		filter.MaxConfidence = model.Float64Ptr(s.thresholds.AutoAccept)
	}

	txns, err := s.store.GetTransactions(ctx, session.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load review queue: %w", err)
	}

	items := make([]QueueItem, 0, len(txns))
	for _, txn := range txns {
		tier := s.thresholds.TierOf(txn.ConfidenceScore)
		if !tier.RequiresReview() {
			continue
		}
		items = append(items, QueueItem{Transaction: txn, Tier: tier})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Transaction.ConfidenceScore, items[j].Transaction.ConfidenceScore
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return *a < *b
		}
	})

	if offset > 0 {
		if offset >= len(items) {
			return []QueueItem{}, nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	s.attachLearned(ctx, items)
	return items, nil
}

func (s *Service) attachLearned(ctx context.Context, items []QueueItem) {
	if s.cache == nil {
		return
	}
	for i := range items {
		txn := &items[i].Transaction
		if txn.MerchantNormalized == "" {
			continue
		}
		m, ok, err := s.cache.Get(ctx, txn.UserID, txn.MerchantNormalized)
		if err != nil {
			s.logger.Warn("Merchant mapping lookup failed", "merchant", txn.MerchantNormalized, "error", err)
			continue
		}
		s.metrics.RecordCacheLookup(ok)
		if ok && m.CategoryID != txn.CategoryID {
			items[i].Learned = &m
		}
	}
}

// History returns the correction audit trail of one transaction, oldest
// first.
func (s *Service) History(ctx context.Context, session model.Session, transactionID string) ([]model.Correction, error) {
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if _, err := s.store.GetTransactionByID(ctx, session.UserID, transactionID); err != nil {
		return nil, err
	}
	corrections, err := s.store.GetCorrections(ctx, session.UserID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}
	return corrections, nil
}
