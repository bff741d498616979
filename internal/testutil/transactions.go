package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

var txnSeq atomic.Int64

// TransactionBuilder builds transactions fluently with sensible defaults:
// owned by DefaultUserID, dated 2025-01-15, INR 100, Others at 0.50.
type TransactionBuilder struct {
	txn model.Transaction
}

// NewTransaction starts a builder for the given merchant.
func NewTransaction(merchant string) *TransactionBuilder {
	return &TransactionBuilder{txn: model.Transaction{
		ID:                 fmt.Sprintf("test-txn-%04d", txnSeq.Add(1)),
		UserID:             DefaultUserID,
		TransactionDate:    model.NewDate(2025, time.January, 15),
		MerchantName:       merchant,
		MerchantNormalized: strings.ToLower(merchant),
		Amount:             decimal.NewFromInt(100),
		Currency:           "INR",
		CategoryID:         model.OthersCategoryID,
		ConfidenceScore:    model.Float64Ptr(0.5),
	}}
}

// WithID overrides the generated ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.txn.ID = id
	return b
}

// WithUser sets the owner.
func (b *TransactionBuilder) WithUser(userID int64) *TransactionBuilder {
	b.txn.UserID = userID
	return b
}

// WithDate sets the transaction date.
func (b *TransactionBuilder) WithDate(year int, month time.Month, day int) *TransactionBuilder {
	b.txn.TransactionDate = model.NewDate(year, month, day)
	return b
}

// WithAmount sets the amount from a decimal string.
func (b *TransactionBuilder) WithAmount(amount string) *TransactionBuilder {
	b.txn.Amount = decimal.RequireFromString(amount)
	return b
}

// WithCategory sets the assigned category.
func (b *TransactionBuilder) WithCategory(id int) *TransactionBuilder {
	b.txn.CategoryID = id
	return b
}

// WithConfidence sets the confidence score.
func (b *TransactionBuilder) WithConfidence(score float64) *TransactionBuilder {
	b.txn.ConfidenceScore = model.Float64Ptr(score)
	return b
}

// WithoutConfidence clears the confidence score.
func (b *TransactionBuilder) WithoutConfidence() *TransactionBuilder {
	b.txn.ConfidenceScore = nil
	return b
}

// Corrected marks the transaction as user corrected.
func (b *TransactionBuilder) Corrected() *TransactionBuilder {
	b.txn.IsUserCorrected = true
	return b
}

// Build returns the transaction.
func (b *TransactionBuilder) Build() model.Transaction {
	return b.txn
}
