// Package triage maps classifier confidence scores onto review tiers.
package triage

import (
	"fmt"
	"math"

	"github.com/Jaikumar96/fincategorizer/internal/common"
)

// Tier is the review bucket a transaction falls into.
type Tier string

const (
	// AutoAccepted needs no human attention.
	AutoAccepted Tier = "auto_accepted"
	// NeedsReview should be glanced at by the user.
	NeedsReview Tier = "needs_review"
	// LowConfidence should be corrected or confirmed by the user.
	LowConfidence Tier = "low_confidence"
)

// Default thresholds.
const (
	DefaultAutoAccept  = 0.85
	DefaultNeedsReview = 0.60
)

// Rank orders tiers from worst (0) to best (2).
func (t Tier) Rank() int {
	switch t {
	case AutoAccepted:
		return 2
	case NeedsReview:
		return 1
	default:
		return 0
	}
}

// RequiresReview reports whether a transaction in this tier should be shown
// in the review queue.
func (t Tier) RequiresReview() bool {
	return t != AutoAccepted
}

// Label is the human readable tier name.
func (t Tier) Label() string {
	switch t {
	case AutoAccepted:
		return "Auto-accepted"
	case NeedsReview:
		return "Needs review"
	default:
		return "Low confidence"
	}
}

// Thresholds are the two cut points between tiers.
type Thresholds struct {
	AutoAccept  float64
	NeedsReview float64
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoAccept: DefaultAutoAccept, NeedsReview: DefaultNeedsReview}
}

// Validate ensures 0 <= NeedsReview <= AutoAccept <= 1.
func (th Thresholds) Validate() error {
	if math.IsNaN(th.AutoAccept) || math.IsNaN(th.NeedsReview) {
		return fmt.Errorf("%w: thresholds must be numbers", common.ErrInvalidConfig)
	}
	if th.NeedsReview < 0 || th.AutoAccept > 1 {
		return fmt.Errorf("%w: thresholds must be within [0, 1], got needs_review=%v auto_accept=%v",
			common.ErrInvalidConfig, th.NeedsReview, th.AutoAccept)
	}
	if th.NeedsReview > th.AutoAccept {
		return fmt.Errorf("%w: needs_review (%v) must not exceed auto_accept (%v)",
			common.ErrInvalidConfig, th.NeedsReview, th.AutoAccept)
	}
	return nil
}

// Tier classifies a confidence score. Scores outside [0, 1] (or NaN) are
// treated as LowConfidence and reported with ErrInvalidScore; the tier is
// always usable even when the error is ignored.
func (th Thresholds) Tier(score float64) (Tier, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return LowConfidence, fmt.Errorf("%w: %v", common.ErrInvalidScore, score)
	}
	switch {
	case score >= th.AutoAccept:
		return AutoAccepted, nil
	case score >= th.NeedsReview:
		return NeedsReview, nil
	default:
		return LowConfidence, nil
	}
}

// TierOf classifies an optional score; a missing score is LowConfidence.
func (th Thresholds) TierOf(score *float64) Tier {
	if score == nil {
		return LowConfidence
	}
	tier, _ := th.Tier(*score)
	return tier
}

// IsAutoAccepted reports whether score is a valid score at or above the
// auto-accept threshold.
func (th Thresholds) IsAutoAccepted(score *float64) bool {
	return th.TierOf(score) == AutoAccepted
}
