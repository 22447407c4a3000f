package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRule holds the keyword and merchant match lists for one category.
// Keywords match as case-insensitive substrings of the description; merchants
// match exactly against the normalized merchant key. Learning appends to
// Merchants, config declaration order is preserved for tie-breaking.
type CategoryRule struct {
	Name      string
	Keywords  []string
	Merchants []string
}

// MappingSource indicates how a merchant mapping was created.
type MappingSource string

const (
	// SourceConfig indicates the mapping came from the rule configuration.
	SourceConfig MappingSource = "CONFIG"
	// SourceLearned indicates the mapping was confirmed by a human correction.
	SourceLearned MappingSource = "LEARNED"
)

// MerchantMapping is an authoritative merchant-to-category entry. Learned
// mappings outrank keyword and fuzzy rules for their merchant, and at most one
// mapping exists per normalized merchant key.
type MerchantMapping struct {
	LastUpdated time.Time
	Merchant    string
	Category    string
	Source      MappingSource
	UseCount    int
}

// MerchantRange is an authoritative per-merchant amount range. Amounts outside
// it are validation errors.
type MerchantRange struct {
	Merchant      string
	MinAmount     decimal.Decimal
	MaxAmount     decimal.Decimal
	BillingCycles int
}

// Validate ensures the range has sane bounds.
func (r *MerchantRange) Validate() error {
	if r.Merchant == "" {
		return fmt.Errorf("merchant is required")
	}
	if r.MinAmount.GreaterThan(r.MaxAmount) {
		return fmt.Errorf("merchant range for %q: min %s exceeds max %s", r.Merchant, r.MinAmount, r.MaxAmount)
	}
	return nil
}

// CategoryThreshold is an advisory per-category amount range. Amounts outside
// it are validation warnings.
type CategoryThreshold struct {
	Category  string
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

// Validate ensures the threshold has sane bounds.
func (t *CategoryThreshold) Validate() error {
	if t.Category == "" {
		return fmt.Errorf("category is required")
	}
	if t.MinAmount.GreaterThan(t.MaxAmount) {
		return fmt.Errorf("category threshold for %q: min %s exceeds max %s", t.Category, t.MinAmount, t.MaxAmount)
	}
	return nil
}

// GlobalBand is one contiguous amount band with its own ceiling. Bands are
// ordered ascending, non-overlapping, and cover the full amount domain; the
// last band is open-ended (Unbounded is set and Upper is ignored).
type GlobalBand struct {
	Label     string
	Lower     decimal.Decimal
	Upper     decimal.Decimal
	MaxCap    decimal.Decimal
	Unbounded bool
}

// Contains reports whether the amount magnitude falls in this band.
func (b *GlobalBand) Contains(magnitude decimal.Decimal) bool {
	if magnitude.LessThan(b.Lower) {
		return false
	}
	if b.Unbounded {
		return true
	}
	return magnitude.LessThan(b.Upper)
}

// Validate ensures the band has sane bounds.
func (b *GlobalBand) Validate() error {
	if !b.Unbounded && b.Lower.GreaterThanOrEqual(b.Upper) {
		return fmt.Errorf("band %q: lower %s must be below upper %s", b.Label, b.Lower, b.Upper)
	}
	if b.MaxCap.LessThan(b.Lower) {
		return fmt.Errorf("band %q: max cap %s below band floor %s", b.Label, b.MaxCap, b.Lower)
	}
	return nil
}
