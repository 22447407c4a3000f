package validate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

func amount(v float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

func testStore(t *testing.T) *rules.Store {
	t.Helper()
	store, err := rules.Load(rules.Config{
		Categories: []rules.CategoryConfig{
			{Name: "Entertainment", Keywords: []string{"streaming"}, Merchants: []string{"Netflix"}},
			{Name: "Fitness", Keywords: []string{"gym"}},
		},
		Validation: rules.ValidationConfig{
			MerchantRanges: map[string]rules.RangeConfig{
				"Netflix": {MinAmount: 5, MaxAmount: 30, BillingCycles: 1},
				"Gym":     {MinAmount: 10, MaxAmount: 50, BillingCycles: 1},
			},
			CategoryThresholds: map[string]rules.ThresholdConfig{
				"Fitness": {MinAmount: 10, MaxAmount: 100},
			},
			GlobalBands: []rules.BandConfig{
				{Label: "standard", Lower: 0, Upper: 10000, MaxCap: 10000},
				{Label: "extended", Lower: 10000, Upper: 50000, MaxCap: 50000},
				{Label: "business", Lower: 50000, Upper: 100000, MaxCap: 100000},
				{Label: "large-value", Lower: 100000, Upper: 0, MaxCap: 1000000},
			},
		},
	})
	require.NoError(t, err)
	return store
}

func validTxn() model.Transaction {
	return model.Transaction{
		ID:          "t1",
		Date:        time.Now().AddDate(0, -1, 0),
		Description: "NETFLIX.COM",
		Amount:      amount(-15.99),
	}
}

func TestPipeline_StructuralShortCircuit(t *testing.T) {
	pipeline := New(testStore(t))

	tests := []struct {
		name     string
		mutate   func(*model.Transaction)
		wantCode model.ReasonCode
	}{
		{
			name: "missing description",
			mutate: func(txn *model.Transaction) {
				txn.Description = ""
				// The huge amount would normally trip tier 3.
				txn.Amount = amount(-2000000)
			},
			wantCode: model.ReasonMissingField,
		},
		{
			name: "missing date",
			mutate: func(txn *model.Transaction) {
				txn.Date = time.Time{}
			},
			wantCode: model.ReasonMissingField,
		},
		{
			name: "missing amount",
			mutate: func(txn *model.Transaction) {
				txn.Amount = decimal.NullDecimal{}
			},
			wantCode: model.ReasonMissingField,
		},
		{
			name: "unparseable amount",
			mutate: func(txn *model.Transaction) {
				txn.Amount = decimal.NullDecimal{}
				txn.AmountText = "12..34"
			},
			wantCode: model.ReasonInvalidFormat,
		},
		{
			name: "unparseable date",
			mutate: func(txn *model.Transaction) {
				txn.Date = time.Time{}
				txn.DateText = "99/99/9999"
			},
			wantCode: model.ReasonInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := validTxn()
			tt.mutate(&txn)

			flags := pipeline.Validate(txn, model.ClassificationResult{Category: model.Uncategorized}, nil)
			require.Len(t, flags, 1)
			assert.Equal(t, 0, flags[0].Tier)
			assert.Equal(t, model.SeverityError, flags[0].Severity)
			assert.Equal(t, tt.wantCode, flags[0].Code)
			assert.Equal(t, "t1", flags[0].TransactionID)
		})
	}
}

func TestPipeline_ZeroAmountIsAdvisory(t *testing.T) {
	pipeline := New(testStore(t))
	txn := validTxn()
	txn.Description = "GYM MEMBERSHIP"
	txn.MerchantName = "Gym"
	txn.Amount = amount(0)

	flags := pipeline.Validate(txn, model.ClassificationResult{Category: "Fitness"}, nil)

	// Zero amount warns but does not stop the later tiers: 0 is also below
	// the merchant range and the category threshold.
	codes := flagCodes(flags)
	assert.Contains(t, codes, model.ReasonZeroAmount)
	assert.Contains(t, codes, model.ReasonMerchantRange)
	assert.Contains(t, codes, model.ReasonCategoryThreshold)
}

func TestPipeline_TiersAreAdditive(t *testing.T) {
	pipeline := New(testStore(t))
	txn := model.Transaction{
		ID:           "t2",
		Date:         time.Now().AddDate(0, -1, 0),
		Description:  "GYM ANNUAL FEE",
		MerchantName: "Gym",
		Amount:       amount(-500),
	}

	flags := pipeline.Validate(txn, model.ClassificationResult{Category: "Fitness"}, nil)
	require.Len(t, flags, 2)

	assert.Equal(t, 1, flags[0].Tier)
	assert.Equal(t, model.SeverityError, flags[0].Severity)
	assert.Equal(t, model.ReasonMerchantRange, flags[0].Code)

	assert.Equal(t, 2, flags[1].Tier)
	assert.Equal(t, model.SeverityWarning, flags[1].Severity)
	assert.Equal(t, model.ReasonCategoryThreshold, flags[1].Code)
}

func TestPipeline_MerchantRangeFromDescription(t *testing.T) {
	pipeline := New(testStore(t))

	// No merchant name set; the ranged merchant is embedded in the
	// description instead.
	txn := validTxn()
	txn.Amount = amount(-45.00)

	flags := pipeline.Validate(txn, model.ClassificationResult{Category: "Entertainment"}, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, model.ReasonMerchantRange, flags[0].Code)
}

func TestPipeline_NetflixWithinRange(t *testing.T) {
	pipeline := New(testStore(t))

	flags := pipeline.Validate(validTxn(), model.ClassificationResult{
		Category: "Entertainment", Method: model.MethodExactMerchant, Confidence: 100,
	}, nil)
	assert.Empty(t, flags)
}

func TestPipeline_GlobalBandAdaptivity(t *testing.T) {
	pipeline := New(testStore(t))

	tests := []struct {
		name      string
		amount    float64
		wantError bool
	}{
		{name: "standard purchase", amount: -120, wantError: false},
		{name: "plausible large transfer", amount: -75000, wantError: false},
		{name: "mid band transfer", amount: -25000, wantError: false},
		{name: "cap breach in open band", amount: -2000000, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := model.Transaction{
				ID:          "t3",
				Date:        time.Now().AddDate(0, -1, 0),
				Description: "PMT TO JOHN SMITH",
				Amount:      amount(tt.amount),
			}
			flags := pipeline.Validate(txn, model.ClassificationResult{Category: model.Uncategorized}, nil)

			if tt.wantError {
				require.Len(t, flags, 1)
				assert.Equal(t, 3, flags[0].Tier)
				assert.Equal(t, model.SeverityError, flags[0].Severity)
				assert.Equal(t, model.ReasonBandCapExceeded, flags[0].Code)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

func TestPipeline_NilScorerSkipsTierFour(t *testing.T) {
	store := testStore(t)
	pipeline := NewWithScorer(store, nil)

	txn := validTxn()
	txn.Date = time.Now().AddDate(1, 0, 0) // future-dated

	flags := pipeline.Validate(txn, model.ClassificationResult{Category: "Entertainment"}, nil)
	assert.Empty(t, flags)
}

func flagCodes(flags []model.ValidationFlag) []model.ReasonCode {
	codes := make([]model.ReasonCode, len(flags))
	for i, flag := range flags {
		codes[i] = flag.Code
	}
	return codes
}
