package model

import (
	"fmt"
	"math"
	"sort"
)

// AlternativeCategory is a runner-up category proposed by the classifier.
type AlternativeCategory struct {
	CategoryName string  `json:"categoryName"`
	CategoryID   int     `json:"categoryId"`
	Score        float64 `json:"score"`
}

// Validate ensures the AlternativeCategory has valid data.
func (a *AlternativeCategory) Validate() error {
	if a.CategoryID <= 0 {
		return fmt.Errorf("category id must be positive, got %d", a.CategoryID)
	}
	if math.IsNaN(a.Score) || a.Score < 0.0 || a.Score > 1.0 {
		return fmt.Errorf("score must be between 0.0 and 1.0, got %.2f", a.Score)
	}
	return nil
}

// Alternatives is a slice of AlternativeCategory that supports sorting and utility methods.
type Alternatives []AlternativeCategory

// Len implements sort.Interface.
func (r Alternatives) Len() int {
	return len(r)
}

// Less implements sort.Interface - higher scores come first.
func (r Alternatives) Less(i, j int) bool {
	if r[i].Score != r[j].Score {
		return r[i].Score > r[j].Score
	}
	return r[i].CategoryID < r[j].CategoryID
}

// Swap implements sort.Interface.
func (r Alternatives) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

// Sort sorts the alternatives by score in descending order.
func (r Alternatives) Sort() {
	sort.Sort(r)
}

// Top returns the highest-scoring alternative, or nil if empty.
func (r Alternatives) Top() *AlternativeCategory {
	if len(r) == 0 {
		return nil
	}
	r.Sort()
	return &r[0]
}

// TopN returns the N highest-scoring alternatives.
func (r Alternatives) TopN(n int) Alternatives {
	if n <= 0 {
		return Alternatives{}
	}

	r.Sort()

	if n > len(r) {
		n = len(r)
	}

	result := make(Alternatives, n)
	copy(result, r[:n])
	return result
}

// Without returns the alternatives excluding categoryID, preserving order.
func (r Alternatives) Without(categoryID int) Alternatives {
	result := make(Alternatives, 0, len(r))
	for _, alt := range r {
		if alt.CategoryID != categoryID {
			result = append(result, alt)
		}
	}
	return result
}

// Validate ensures all alternatives in the slice are valid.
func (r Alternatives) Validate() error {
	seen := make(map[int]bool)

	for i, alt := range r {
		if err := alt.Validate(); err != nil {
			return fmt.Errorf("invalid alternative at index %d: %w", i, err)
		}
		if seen[alt.CategoryID] {
			return fmt.Errorf("duplicate category %d in alternatives", alt.CategoryID)
		}
		seen[alt.CategoryID] = true
	}

	return nil
}
