// Package ingest turns raw statement records into classified, persisted
// transactions with per-row failure reporting.
package ingest

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// DateLayouts lists the accepted date formats in priority order. Day-first
// wins over month-first, so "01/02/2025" is 1 February 2025 and a
// month-first reading is only reached when day-first is impossible
// ("12/25/2025").
var DateLayouts = []string{
	"2006-01-02",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// RawRecord is one unparsed input row.
type RawRecord struct {
	Metadata model.Metadata
	// Err marks a row the reader could not split into fields.
	Err      error
	Date     string
	Merchant string
	Amount   string
	Currency string
}

// ParseDate parses s using DateLayouts.
func ParseDate(s string) (model.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Date{}, common.NewValidationError("date", "", "is required")
	}

	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), nil
		}
	}
	return model.Date{}, common.NewValidationError("date", s, "expected YYYY-MM-DD, DD/MM/YYYY, MM/DD/YYYY or DD-MM-YYYY")
}

// ParseAmount parses a non-negative decimal amount small enough to be sent
// to the classifier as a float. Thousands separators are ignored.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, common.NewValidationError("amount", "", "is required")
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, common.NewValidationError("amount", s, "not a number")
	}
	if amount.IsNegative() {
		return decimal.Zero, common.NewValidationError("amount", s, "must not be negative")
	}
	if f, _ := amount.Float64(); math.IsInf(f, 0) {
		return decimal.Zero, common.NewValidationError("amount", s, "out of range")
	}
	return amount, nil
}

// NormalizeMerchant lowercases the name, drops punctuation and collapses
// whitespace.
func NormalizeMerchant(name string) string {
	s := strings.ToLower(name)
	s = nonAlphanumeric.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeCurrency upper-cases the code or returns fallback when empty.
func NormalizeCurrency(code, fallback string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fallback
	}
	return code
}
