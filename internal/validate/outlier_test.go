package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

func testScorer(allowFuture bool) *ZScoreScorer {
	scorer := NewZScoreScorer(rules.Settings{
		OutlierMultiplier: 3.0,
		RetentionYears:    5,
		AllowFuture:       allowFuture,
	})
	scorer.now = func() time.Time {
		return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	}
	return scorer
}

func TestZScoreScorer_AmountOutlier(t *testing.T) {
	scorer := testScorer(false)
	stats := &BatchStats{
		Overall: Distribution{Count: 20, Mean: 80, StdDev: 40},
		ByMerchant: map[string]Distribution{
			"netflix": {Count: 12, Mean: 16, StdDev: 2},
		},
		ByCategory: map[string]Distribution{
			"Entertainment": {Count: 15, Mean: 25, StdDev: 10},
		},
	}

	txn := model.Transaction{
		ID:           "t1",
		Date:         time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Description:  "NETFLIX.COM",
		MerchantName: "Netflix",
		Amount:       amount(-150),
	}
	result := model.ClassificationResult{Category: "Entertainment", Method: model.MethodExactMerchant}

	flags := scorer.Score(txn, result, stats)
	require.Len(t, flags, 1)
	assert.Equal(t, 4, flags[0].Tier)
	assert.Equal(t, model.SeverityWarning, flags[0].Severity)
	assert.Equal(t, model.ReasonAmountOutlier, flags[0].Code)
	assert.Contains(t, flags[0].Reason, "merchant")
}

func TestZScoreScorer_TypicalAmountNotFlagged(t *testing.T) {
	scorer := testScorer(false)
	stats := &BatchStats{
		ByMerchant: map[string]Distribution{
			"netflix": {Count: 12, Mean: 16, StdDev: 2},
		},
	}

	txn := model.Transaction{
		ID:           "t1",
		Date:         time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Description:  "NETFLIX.COM",
		MerchantName: "Netflix",
		Amount:       amount(-15.99),
	}

	flags := scorer.Score(txn, model.ClassificationResult{Category: "Entertainment"}, stats)
	assert.Empty(t, flags)
}

func TestZScoreScorer_SmallGroupsFallBack(t *testing.T) {
	scorer := testScorer(false)
	stats := &BatchStats{
		Overall: Distribution{Count: 30, Mean: 50, StdDev: 10},
		ByMerchant: map[string]Distribution{
			// Too few samples to judge by merchant.
			"rare vendor": {Count: 1, Mean: 5000, StdDev: 0},
		},
	}

	txn := model.Transaction{
		ID:           "t2",
		Date:         time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Description:  "RARE VENDOR",
		MerchantName: "Rare Vendor",
		Amount:       amount(-5000),
	}

	flags := scorer.Score(txn, model.ClassificationResult{Category: model.Uncategorized}, stats)
	require.Len(t, flags, 1)
	assert.Equal(t, model.ReasonAmountOutlier, flags[0].Code)
	assert.Contains(t, flags[0].Reason, "batch")
}

func TestZScoreScorer_ZeroStdDevUsesMultiplier(t *testing.T) {
	scorer := testScorer(false)
	stats := &BatchStats{
		ByMerchant: map[string]Distribution{
			"netflix": {Count: 6, Mean: 16, StdDev: 0},
		},
	}

	txn := model.Transaction{
		ID:           "t3",
		Date:         time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Description:  "NETFLIX.COM",
		MerchantName: "Netflix",
		Amount:       amount(-100),
	}

	flags := scorer.Score(txn, model.ClassificationResult{}, stats)
	require.Len(t, flags, 1)
	assert.Equal(t, model.ReasonAmountOutlier, flags[0].Code)
}

func TestZScoreScorer_DateWindow(t *testing.T) {
	tests := []struct {
		name        string
		date        time.Time
		allowFuture bool
		wantFlag    bool
	}{
		{
			name:     "future date",
			date:     time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			wantFlag: true,
		},
		{
			name:        "future date allowed",
			date:        time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			allowFuture: true,
			wantFlag:    false,
		},
		{
			name:     "older than retention horizon",
			date:     time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
			wantFlag: true,
		},
		{
			name:     "inside window",
			date:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantFlag: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := testScorer(tt.allowFuture)
			txn := model.Transaction{
				ID:          "t4",
				Date:        tt.date,
				Description: "PMT TO JOHN SMITH",
				Amount:      amount(-20),
			}

			flags := scorer.Score(txn, model.ClassificationResult{}, nil)
			if tt.wantFlag {
				require.Len(t, flags, 1)
				assert.Equal(t, model.ReasonDateOutOfWindow, flags[0].Code)
				assert.Equal(t, model.SeverityWarning, flags[0].Severity)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

func TestComputeBatchStats(t *testing.T) {
	txns := []model.Transaction{
		{Description: "NETFLIX.COM", Amount: amount(-10)},
		{Description: "NETFLIX.COM", Amount: amount(-20)},
		{Description: "NETFLIX.COM", Amount: amount(-30)},
		{Description: "MISSING AMOUNT"},
	}
	results := []model.ClassificationResult{
		{Category: "Entertainment", Method: model.MethodExactMerchant},
		{Category: "Entertainment", Method: model.MethodExactMerchant},
		{Category: "Entertainment", Method: model.MethodExactMerchant},
		{Category: model.Uncategorized, Method: model.MethodNone},
	}

	stats := ComputeBatchStats(txns, results)

	assert.Equal(t, 3, stats.Overall.Count)
	assert.InDelta(t, 20.0, stats.Overall.Mean, 0.001)
	assert.InDelta(t, 10.0, stats.Overall.StdDev, 0.001)

	merchant, ok := stats.ByMerchant["netflix.com"]
	require.True(t, ok)
	assert.Equal(t, 3, merchant.Count)

	category, ok := stats.ByCategory["Entertainment"]
	require.True(t, ok)
	assert.InDelta(t, 20.0, category.Mean, 0.001)

	_, ok = stats.ByCategory[model.Uncategorized]
	assert.False(t, ok)
}
