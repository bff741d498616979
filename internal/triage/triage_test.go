package triage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaikumar96/fincategorizer/internal/common"
)

func TestThresholds_Tier(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name  string
		want  Tier
		score float64
	}{
		{name: "exactly auto accept", score: 0.85, want: AutoAccepted},
		{name: "certain", score: 1.0, want: AutoAccepted},
		{name: "just below auto accept", score: 0.8499, want: NeedsReview},
		{name: "exactly needs review", score: 0.60, want: NeedsReview},
		{name: "just below needs review", score: 0.5999, want: LowConfidence},
		{name: "zero", score: 0, want: LowConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := th.Tier(tt.score)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThresholds_TierRejectsInvalidScores(t *testing.T) {
	th := DefaultThresholds()

	for _, score := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1)} {
		got, err := th.Tier(score)
		assert.ErrorIs(t, err, common.ErrInvalidScore, "score %v", score)
		assert.Equal(t, LowConfidence, got, "score %v", score)
	}
}

func TestThresholds_TierIsMonotonic(t *testing.T) {
	th := DefaultThresholds()

	prev := LowConfidence
	for i := 0; i <= 1000; i++ {
		tier, err := th.Tier(float64(i) / 1000)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, tier.Rank(), prev.Rank(), "score %v", float64(i)/1000)
		prev = tier
	}
}

func TestThresholds_TierOf(t *testing.T) {
	th := DefaultThresholds()
	high := 0.9
	bad := 7.0

	assert.Equal(t, LowConfidence, th.TierOf(nil))
	assert.Equal(t, AutoAccepted, th.TierOf(&high))
	assert.Equal(t, LowConfidence, th.TierOf(&bad))
	assert.True(t, th.IsAutoAccepted(&high))
	assert.False(t, th.IsAutoAccepted(nil))
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{name: "defaults", th: DefaultThresholds()},
		{name: "equal thresholds", th: Thresholds{AutoAccept: 0.7, NeedsReview: 0.7}},
		{name: "full range", th: Thresholds{AutoAccept: 1, NeedsReview: 0}},
		{name: "inverted", th: Thresholds{AutoAccept: 0.5, NeedsReview: 0.6}, wantErr: true},
		{name: "above one", th: Thresholds{AutoAccept: 1.2, NeedsReview: 0.6}, wantErr: true},
		{name: "negative", th: Thresholds{AutoAccept: 0.8, NeedsReview: -0.1}, wantErr: true},
		{name: "NaN", th: Thresholds{AutoAccept: math.NaN(), NeedsReview: 0.6}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTier_RequiresReview(t *testing.T) {
	assert.False(t, AutoAccepted.RequiresReview())
	assert.True(t, NeedsReview.RequiresReview())
	assert.True(t, LowConfidence.RequiresReview())
	assert.Equal(t, "Needs review", NeedsReview.Label())
}
