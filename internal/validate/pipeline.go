// Package validate implements the tiered validation pipeline. Tiers run in
// fixed order and are additive: a transaction can collect flags from several
// tiers. Only a structural failure at tier 0 short-circuits the rest.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/siftd/sift/internal/match"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

// Pipeline validates classified transactions against the rule store.
type Pipeline struct {
	store  *rules.Store
	scorer Scorer
}

// New creates a pipeline with the default z-score heuristic for tier 4.
func New(store *rules.Store) *Pipeline {
	return NewWithScorer(store, NewZScoreScorer(store.Settings()))
}

// NewWithScorer creates a pipeline with a custom tier-4 scorer. A nil scorer
// disables the heuristic tier.
func NewWithScorer(store *rules.Store, scorer Scorer) *Pipeline {
	return &Pipeline{store: store, scorer: scorer}
}

// Validate runs all tiers over one transaction and returns its flags in tier
// order. stats may be nil, which disables the amount half of tier 4.
// Validation never mutates the transaction or its classification.
func (p *Pipeline) Validate(txn model.Transaction, result model.ClassificationResult, stats *BatchStats) []model.ValidationFlag {
	var flags []model.ValidationFlag

	if flag, fatal := p.structural(txn); fatal {
		return []model.ValidationFlag{flag}
	} else if flag.Code != "" {
		flags = append(flags, flag)
	}

	if flag, ok := p.merchantRange(txn); ok {
		flags = append(flags, flag)
	}
	if flag, ok := p.categoryThreshold(txn, result); ok {
		flags = append(flags, flag)
	}
	if flag, ok := p.globalBand(txn); ok {
		flags = append(flags, flag)
	}
	if p.scorer != nil {
		flags = append(flags, p.scorer.Score(txn, result, stats)...)
	}
	return flags
}

// structural is tier 0. A missing or unparseable date, description, or
// amount yields a single error flag and skips every later tier. A zero
// amount is advisory only and does not stop the pipeline.
func (p *Pipeline) structural(txn model.Transaction) (model.ValidationFlag, bool) {
	var missing, invalid []string

	if txn.Date.IsZero() {
		if txn.DateText != "" {
			invalid = append(invalid, "date")
		} else {
			missing = append(missing, "date")
		}
	}
	if strings.TrimSpace(txn.Description) == "" {
		missing = append(missing, "description")
	}
	if !txn.Amount.Valid {
		if txn.AmountText != "" {
			invalid = append(invalid, "amount")
		} else {
			missing = append(missing, "amount")
		}
	}

	if len(missing) > 0 {
		return model.ValidationFlag{
			Tier:          0,
			Severity:      model.SeverityError,
			Code:          model.ReasonMissingField,
			Reason:        fmt.Sprintf("missing required field(s): %s", strings.Join(missing, ", ")),
			TransactionID: txn.ID,
		}, true
	}
	if len(invalid) > 0 {
		return model.ValidationFlag{
			Tier:          0,
			Severity:      model.SeverityError,
			Code:          model.ReasonInvalidFormat,
			Reason:        fmt.Sprintf("unparseable field(s): %s", strings.Join(invalid, ", ")),
			TransactionID: txn.ID,
		}, true
	}

	if txn.Amount.Valid && txn.Amount.Decimal.IsZero() {
		return model.ValidationFlag{
			Tier:          0,
			Severity:      model.SeverityWarning,
			Code:          model.ReasonZeroAmount,
			Reason:        "amount is zero",
			TransactionID: txn.ID,
		}, false
	}
	return model.ValidationFlag{}, false
}

// merchantRange is tier 1: authoritative per-merchant bounds.
func (p *Pipeline) merchantRange(txn model.Transaction) (model.ValidationFlag, bool) {
	r, ok := p.rangeFor(txn)
	if !ok {
		return model.ValidationFlag{}, false
	}
	mag := txn.Magnitude()
	if mag.GreaterThanOrEqual(r.MinAmount) && mag.LessThanOrEqual(r.MaxAmount) {
		return model.ValidationFlag{}, false
	}
	reason := fmt.Sprintf("amount %s outside the %s to %s range for merchant %q",
		mag.StringFixed(2), r.MinAmount.StringFixed(2), r.MaxAmount.StringFixed(2), r.Merchant)
	return model.ValidationFlag{
		Tier:          1,
		Severity:      model.SeverityError,
		Code:          model.ReasonMerchantRange,
		Reason:        reason,
		TransactionID: txn.ID,
	}, true
}

// rangeFor locates a merchant range by the transaction's merchant key, or by
// scanning the ranged merchants for one embedded in the description when the
// loader extracted no merchant. Longer keys are tried first.
func (p *Pipeline) rangeFor(txn model.Transaction) (model.MerchantRange, bool) {
	if key := rules.Key(txn.MerchantName); key != "" {
		if r, ok := p.store.MerchantRange(key); ok {
			return r, true
		}
	}
	desc := match.NormalizeDescription(txn.Description)
	if desc == "" {
		return model.MerchantRange{}, false
	}
	merchants := p.store.RangeMerchants()
	sort.SliceStable(merchants, func(i, j int) bool {
		return len(merchants[i]) > len(merchants[j])
	})
	for _, key := range merchants {
		if strings.Contains(desc, key) {
			if r, ok := p.store.MerchantRange(key); ok {
				return r, true
			}
		}
	}
	return model.MerchantRange{}, false
}

// categoryThreshold is tier 2: advisory per-category bounds.
func (p *Pipeline) categoryThreshold(txn model.Transaction, result model.ClassificationResult) (model.ValidationFlag, bool) {
	if !result.Categorized() {
		return model.ValidationFlag{}, false
	}
	t, ok := p.store.CategoryThreshold(result.Category)
	if !ok {
		return model.ValidationFlag{}, false
	}
	mag := txn.Magnitude()
	if mag.GreaterThanOrEqual(t.MinAmount) && mag.LessThanOrEqual(t.MaxAmount) {
		return model.ValidationFlag{}, false
	}
	reason := fmt.Sprintf("amount %s outside the %s to %s threshold for category %q",
		mag.StringFixed(2), t.MinAmount.StringFixed(2), t.MaxAmount.StringFixed(2), t.Category)
	return model.ValidationFlag{
		Tier:          2,
		Severity:      model.SeverityWarning,
		Code:          model.ReasonCategoryThreshold,
		Reason:        reason,
		TransactionID: txn.ID,
	}, true
}

// globalBand is tier 3: the amount magnitude is placed into its band and
// checked against that band's own ceiling, so the limit scales with the
// transaction's size instead of applying one global constant.
func (p *Pipeline) globalBand(txn model.Transaction) (model.ValidationFlag, bool) {
	mag := txn.Magnitude()
	for _, band := range p.store.Bands() {
		if !band.Contains(mag) {
			continue
		}
		if mag.LessThanOrEqual(band.MaxCap) {
			return model.ValidationFlag{}, false
		}
		reason := fmt.Sprintf("amount %s exceeds the %s cap for the %q band",
			mag.StringFixed(2), band.MaxCap.StringFixed(2), band.Label)
		return model.ValidationFlag{
			Tier:          3,
			Severity:      model.SeverityError,
			Code:          model.ReasonBandCapExceeded,
			Reason:        reason,
			TransactionID: txn.ID,
		}, true
	}
	return model.ValidationFlag{}, false
}
