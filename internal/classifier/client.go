// Package classifier is the boundary to the categorization service. It
// provides the remote HTTP client, a built-in keyword classifier, merchant
// mapping caches and a guarded decorator adding rate limiting, per-call
// timeouts and mapping capture.
package classifier

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// Request is one transaction submitted for categorization.
type Request struct {
	TransactionDate    model.Date
	Amount             decimal.Decimal
	MerchantName       string
	MerchantNormalized string
	Currency           string
	UserID             int64
}

// Response is the classifier's answer for one transaction.
type Response struct {
	CategoryName    string
	Alternatives    model.Alternatives
	CategoryID      int
	ConfidenceScore float64
}

// Validate checks the response is usable and sorts its alternatives by
// descending score.
func (r *Response) Validate() error {
	if r.CategoryID <= 0 {
		return fmt.Errorf("category id must be positive, got %d", r.CategoryID)
	}
	if math.IsNaN(r.ConfidenceScore) || r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("confidence score must be between 0.0 and 1.0, got %v", r.ConfidenceScore)
	}
	if err := r.Alternatives.Validate(); err != nil {
		return fmt.Errorf("invalid alternatives: %w", err)
	}
	r.Alternatives = r.Alternatives.Without(r.CategoryID)
	r.Alternatives.Sort()
	return nil
}

// Client categorizes transactions.
type Client interface {
	Categorize(ctx context.Context, req Request) (Response, error)
}
