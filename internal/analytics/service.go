package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/service"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

// DefaultWindowDays is the accuracy window used when none is given.
const DefaultWindowDays = 30

// Store loads transaction snapshots and correction history.
type Store interface {
	GetTransactions(ctx context.Context, userID int64, filter service.TransactionFilter) ([]model.Transaction, error)
	GetCorrectionsSince(ctx context.Context, userID int64, since time.Time) ([]model.Correction, error)
}

// Window is an inclusive date range. Either bound may be nil.
type Window struct {
	Start *model.Date
	End   *model.Date
}

// Validate rejects a window whose start is after its end.
func (w Window) Validate() error {
	if w.Start != nil && w.End != nil && w.Start.After(w.End.Time) {
		return common.NewValidationError("startDate", w.Start.String(), "must not be after endDate "+w.End.String())
	}
	return nil
}

// LastDays returns the window of the n days ending today, today included.
func LastDays(today model.Date, n int) Window {
	if n <= 0 {
		n = DefaultWindowDays
	}
	start := today.AddDays(-(n - 1))
	return Window{Start: &start, End: &today}
}

// Service answers analytics queries for one user at a time.
type Service struct {
	store      Store
	logger     *slog.Logger
	now        func() time.Time
	thresholds triage.Thresholds
}

// NewService creates a Service. A nil logger uses slog.Default and zero
// thresholds use the defaults.
func NewService(store Store, th triage.Thresholds, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if th == (triage.Thresholds{}) {
		th = triage.DefaultThresholds()
	}
	return &Service{
		store:      store,
		logger:     logger,
		now:        time.Now,
		thresholds: th,
	}
}

func (s *Service) snapshot(ctx context.Context, session model.Session, w Window) ([]model.Transaction, error) {
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	txns, err := s.store.GetTransactions(ctx, session.UserID, service.TransactionFilter{
		StartDate: w.Start,
		EndDate:   w.End,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return txns, nil
}

// Accuracy reports classifier accuracy over the last windowDays days,
// along with how many corrections the user made in that time.
func (s *Service) Accuracy(ctx context.Context, session model.Session, windowDays int) (model.AccuracyReport, error) {
	w := LastDays(model.DateOf(s.now()), windowDays)
	txns, err := s.snapshot(ctx, session, w)
	if err != nil {
		return model.AccuracyReport{}, err
	}
	report := Accuracy(txns, s.thresholds)

	corrections, err := s.store.GetCorrectionsSince(ctx, session.UserID, w.Start.Time)
	if err != nil {
		return model.AccuracyReport{}, fmt.Errorf("failed to load corrections: %w", err)
	}
	report.RecentCorrections = len(corrections)
	return report, nil
}

// CategoryDistribution reports spending per category within w.
func (s *Service) CategoryDistribution(ctx context.Context, session model.Session, w Window) ([]model.CategoryDistribution, error) {
	txns, err := s.snapshot(ctx, session, w)
	if err != nil {
		return nil, err
	}
	return Distribution(txns), nil
}

// Trends reports spending per bucket within w.
func (s *Service) Trends(ctx context.Context, session model.Session, groupBy model.GroupBy, w Window) ([]model.TrendPoint, error) {
	txns, err := s.snapshot(ctx, session, w)
	if err != nil {
		return nil, err
	}
	return Trends(txns, groupBy), nil
}

// Dashboard computes accuracy, distribution and trends over a single
// snapshot of w. The three views are computed concurrently and joined.
func (s *Service) Dashboard(ctx context.Context, session model.Session, groupBy model.GroupBy, w Window) (*model.Dashboard, error) {
	start := time.Now()

	txns, err := s.snapshot(ctx, session, w)
	if err != nil {
		return nil, err
	}

	var dash model.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dash.Accuracy = Accuracy(txns, s.thresholds)
		return gctx.Err()
	})
	g.Go(func() error {
		dash.Distribution = Distribution(txns)
		return gctx.Err()
	})
	g.Go(func() error {
		dash.Trends = Trends(txns, groupBy)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("Dashboard computed",
		"user_id", session.UserID,
		"transactions", len(txns),
		"duration", time.Since(start))

	return &dash, nil
}
