package model

import (
	"fmt"
	"time"
)

// MappingSource indicates how a merchant mapping was learned.
type MappingSource string

const (
	// SourceClassifier indicates a high-confidence classifier answer.
	SourceClassifier MappingSource = "classifier"
	// SourceUser indicates the user corrected or confirmed the category.
	SourceUser MappingSource = "user"
)

// MerchantMapping remembers which category a normalized merchant belongs to
// for one user.
type MerchantMapping struct {
	UpdatedAt          time.Time     `json:"updatedAt"`
	MerchantNormalized string        `json:"merchantNormalized"`
	CategoryName       string        `json:"categoryName"`
	Source             MappingSource `json:"source"`
	UserID             int64         `json:"userId"`
	Confidence         float64       `json:"confidence"`
	CategoryID         int           `json:"categoryId"`
	UseCount           int           `json:"useCount"`
}

// Validate checks the mapping is storable.
func (m *MerchantMapping) Validate() error {
	if m.UserID <= 0 {
		return fmt.Errorf("missing user ID")
	}
	if m.MerchantNormalized == "" {
		return fmt.Errorf("missing merchant")
	}
	if m.CategoryID <= 0 {
		return fmt.Errorf("missing category")
	}
	if m.Confidence < 0 || m.Confidence > 1 || m.Confidence != m.Confidence {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %v", m.Confidence)
	}
	switch m.Source {
	case SourceClassifier, SourceUser:
	default:
		return fmt.Errorf("invalid source %q", m.Source)
	}
	return nil
}
