package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NoteKey is the metadata key that accumulates correction notes.
const NoteKey = "note"

// Metadata is an opaque key-value bag carried alongside a transaction.
type Metadata map[string]string

// WithNote returns a copy of m with note appended to the existing notes,
// joined by "; ". An empty note leaves the notes unchanged.
func (m Metadata) WithNote(note string) Metadata {
	out := make(Metadata, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return out
	}
	if existing := out[NoteKey]; existing != "" {
		out[NoteKey] = existing + "; " + note
	} else {
		out[NoteKey] = note
	}
	return out
}

// Transaction is a single ingested spending record and its classification.
type Transaction struct {
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	TransactionDate    Date            `json:"transactionDate"`
	Amount             decimal.Decimal `json:"amount"`
	ConfidenceScore    *float64        `json:"confidenceScore"`
	Category           *Category       `json:"category,omitempty"`
	Metadata           Metadata        `json:"metadata,omitempty"`
	ID                 string          `json:"transactionId"`
	MerchantName       string          `json:"merchantName"`
	MerchantNormalized string          `json:"merchantNormalized"`
	Currency           string          `json:"currency"`
	Alternatives       Alternatives    `json:"alternatives,omitempty"`
	UserID             int64           `json:"-"`
	CategoryID         int             `json:"categoryId"`
	IsUserCorrected    bool            `json:"isUserCorrected"`
}

// Confidence returns the stored confidence score and whether one is present.
func (t *Transaction) Confidence() (float64, bool) {
	if t.ConfidenceScore == nil {
		return 0, false
	}
	return *t.ConfidenceScore, true
}

// CategoryName returns the name of the assigned category, or "" if unresolved.
func (t *Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}

// Validate checks the fields every persisted transaction must have.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("missing ID")
	}
	if t.UserID <= 0 {
		return fmt.Errorf("missing user ID")
	}
	if t.TransactionDate.IsZero() {
		return fmt.Errorf("missing transaction date")
	}
	if strings.TrimSpace(t.MerchantName) == "" {
		return fmt.Errorf("missing merchant name")
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("amount must be non-negative, got %s", t.Amount)
	}
	if t.Currency == "" {
		return fmt.Errorf("missing currency")
	}
	if t.CategoryID <= 0 {
		return fmt.Errorf("missing category")
	}
	if score, ok := t.Confidence(); ok && (score < 0 || score > 1 || score != score) {
		return fmt.Errorf("confidence score must be between 0.0 and 1.0, got %v", score)
	}
	return nil
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}
