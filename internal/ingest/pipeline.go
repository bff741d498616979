package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Jaikumar96/fincategorizer/internal/classifier"
	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/metrics"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultMaxBatchSize = 1000
	DefaultWorkers      = 8
	DefaultCurrency     = "INR"
)

// Store is the persistence the pipeline needs.
type Store interface {
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetCategories(ctx context.Context, userID int64) ([]model.Category, error)
}

// Options configures a Pipeline.
type Options struct {
	// Progress, when set, is called after every row with the number of rows
	// finished so far. Calls are serialized.
	Progress        func(done, total int)
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	DefaultCurrency string
	Thresholds      triage.Thresholds
	MaxBatchSize    int
	Workers         int
}

// Pipeline validates, classifies and stores batches of raw records.
type Pipeline struct {
	store      Store
	classifier classifier.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	progress   func(done, total int)
	currency   string
	thresholds triage.Thresholds
	maxBatch   int
	workers    int
}

// NewPipeline creates a pipeline.
func NewPipeline(store Store, client classifier.Client, opts Options) *Pipeline {
	p := &Pipeline{
		store:      store,
		classifier: client,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		progress:   opts.Progress,
		currency:   opts.DefaultCurrency,
		thresholds: opts.Thresholds,
		maxBatch:   opts.MaxBatchSize,
		workers:    opts.Workers,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.currency == "" {
		p.currency = DefaultCurrency
	}
	if p.thresholds == (triage.Thresholds{}) {
		p.thresholds = triage.DefaultThresholds()
	}
	if p.maxBatch <= 0 {
		p.maxBatch = DefaultMaxBatchSize
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	return p
}

// rowOutcome is the result of one record, stored at the record's index.
type rowOutcome struct {
	err  error
	txn  model.Transaction
	kind string
}

// Ingest processes records for the session's user. A limit of zero or less
// uses the configured maximum batch size.
//
// A batch larger than the limit is rejected with common.ErrBatchTooLarge
// before any record is looked at. Otherwise every record is handled on its
// own: a record that fails to parse, classify or store is reported in
// UploadResult.Errors with its 1-based row number and the rest of the batch
// carries on. If ctx is canceled, rows already stored stay stored and the
// rows not yet processed are reported as failures.
func (p *Pipeline) Ingest(ctx context.Context, session model.Session, records []RawRecord, limit int) (*model.UploadResult, error) {
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if limit <= 0 {
		limit = p.maxBatch
	}
	if len(records) > limit {
		p.metrics.RecordBatch("rejected")
		return nil, fmt.Errorf("%w: %d records exceeds the limit of %d", common.ErrBatchTooLarge, len(records), limit)
	}

	start := time.Now()

	categories, err := p.categories(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]rowOutcome, len(records))

	var (
		mu   sync.Mutex
		done int
	)
	finish := func(i int, out rowOutcome) {
		outcomes[i] = out
		p.metrics.RecordRow(out.kind)
		if p.progress == nil {
			return
		}
		mu.Lock()
		done++
		p.progress(done, len(records))
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i := range records {
		if ctx.Err() != nil {
			finish(i, rowOutcome{err: ctx.Err(), kind: metrics.OutcomeCanceled})
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				finish(i, rowOutcome{err: ctx.Err(), kind: metrics.OutcomeCanceled})
				return nil
			}
			txn, kind, err := p.processRow(ctx, session.UserID, records[i], categories)
			finish(i, rowOutcome{txn: txn, kind: kind, err: err})
			return nil
		})
	}
	_ = g.Wait()

	result := &model.UploadResult{
		TotalRecords: len(records),
		Errors:       []model.RowError{},
	}
	for i, out := range outcomes {
		if out.err != nil {
			result.Errors = append(result.Errors, model.RowError{
				RowNumber:    i + 1,
				MerchantName: strings.TrimSpace(records[i].Merchant),
				Error:        out.err.Error(),
			})
			continue
		}
		result.Transactions = append(result.Transactions, out.txn)
		p.metrics.RecordTier(string(p.thresholds.TierOf(out.txn.ConfidenceScore)))
	}
	result.SuccessCount = len(result.Transactions)
	result.FailureCount = len(result.Errors)

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent upload result: %w", err)
	}

	p.metrics.RecordBatch("processed")
	p.logger.Info("Batch ingested",
		"user_id", session.UserID,
		"request_id", session.RequestID,
		"total", result.TotalRecords,
		"succeeded", result.SuccessCount,
		"failed", result.FailureCount,
		"duration", time.Since(start))

	return result, nil
}

// IngestOne stores a single record. Unlike Ingest it reports the row's
// failure as the returned error: common.ErrValidation for bad input and
// common.ErrClassificationUnavailable when the classifier could not answer.
func (p *Pipeline) IngestOne(ctx context.Context, session model.Session, rec RawRecord) (*model.Transaction, error) {
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	categories, err := p.categories(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	txn, kind, err := p.processRow(ctx, session.UserID, rec, categories)
	p.metrics.RecordRow(kind)
	if err != nil {
		return nil, err
	}
	p.metrics.RecordTier(string(p.thresholds.TierOf(txn.ConfidenceScore)))
	return &txn, nil
}

func (p *Pipeline) categories(ctx context.Context, userID int64) (map[int]model.Category, error) {
	cats, err := p.store.GetCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	byID := make(map[int]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	return byID, nil
}

// processRow parses, classifies and stores one record. The returned kind is
// the metrics outcome label.
func (p *Pipeline) processRow(ctx context.Context, userID int64, rec RawRecord, categories map[int]model.Category) (model.Transaction, string, error) {
	txn, err := p.parse(userID, rec)
	if err != nil {
		return model.Transaction{}, metrics.OutcomeInvalid, err
	}

	resp, err := p.classifier.Categorize(ctx, classifier.Request{
		UserID:             userID,
		MerchantName:       txn.MerchantName,
		MerchantNormalized: txn.MerchantNormalized,
		Amount:             txn.Amount,
		Currency:           txn.Currency,
		TransactionDate:    txn.TransactionDate,
	})
	if err != nil {
		if !errors.Is(err, common.ErrClassificationUnavailable) {
			err = fmt.Errorf("%w: %w", common.ErrClassificationUnavailable, err)
		}
		return model.Transaction{}, metrics.OutcomeClassifyFailed, err
	}

	category, ok := categories[resp.CategoryID]
	if !ok {
		return model.Transaction{}, metrics.OutcomeClassifyFailed,
			fmt.Errorf("%w: unknown category %d", common.ErrClassificationUnavailable, resp.CategoryID)
	}

	alternatives := make(model.Alternatives, 0, len(resp.Alternatives))
	for _, alt := range resp.Alternatives {
		if known, ok := categories[alt.CategoryID]; ok {
			alt.CategoryName = known.Name
			alternatives = append(alternatives, alt)
		}
	}

	txn.ID = uuid.NewString()
	txn.CategoryID = category.ID
	txn.Category = &category
	txn.ConfidenceScore = model.Float64Ptr(resp.ConfidenceScore)
	txn.Alternatives = alternatives

	if err := p.store.SaveTransaction(ctx, &txn); err != nil {
		p.logger.Warn("Failed to store transaction",
			"merchant", txn.MerchantName,
			"error", err)
		return model.Transaction{}, metrics.OutcomeStoreFailed, fmt.Errorf("failed to store transaction: %w", err)
	}

	return txn, metrics.OutcomeSuccess, nil
}

// parse validates a record into an unclassified transaction.
func (p *Pipeline) parse(userID int64, rec RawRecord) (model.Transaction, error) {
	if rec.Err != nil {
		return model.Transaction{}, rec.Err
	}

	merchant := strings.TrimSpace(rec.Merchant)
	if merchant == "" {
		return model.Transaction{}, common.NewValidationError("merchant", "", "is required")
	}
	normalized := NormalizeMerchant(merchant)
	if normalized == "" {
		return model.Transaction{}, common.NewValidationError("merchant", merchant, "has no letters or digits")
	}

	date, err := ParseDate(rec.Date)
	if err != nil {
		return model.Transaction{}, err
	}

	amount, err := ParseAmount(rec.Amount)
	if err != nil {
		return model.Transaction{}, err
	}

	var meta model.Metadata
	if len(rec.Metadata) > 0 {
		meta = make(model.Metadata, len(rec.Metadata))
		for k, v := range rec.Metadata {
			meta[k] = v
		}
	}

	return model.Transaction{
		UserID:             userID,
		MerchantName:       merchant,
		MerchantNormalized: normalized,
		Amount:             amount,
		Currency:           NormalizeCurrency(rec.Currency, p.currency),
		TransactionDate:    date,
		Metadata:           meta,
	}, nil
}
