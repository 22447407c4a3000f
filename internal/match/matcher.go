// Package match implements the multi-strategy transaction matcher. Strategies
// run in fixed priority order and the first hit wins: exact merchant, keyword,
// fuzzy, then Uncategorized. Tie-breaks are deterministic so repeated runs
// over the same input produce identical reports.
package match

import (
	"sort"
	"strings"

	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

// Matcher classifies transactions against a rule store. It only reads the
// store; learning happens elsewhere, between batches.
type Matcher struct {
	store *rules.Store
}

// New creates a matcher backed by the given rule store.
func New(store *rules.Store) *Matcher {
	return &Matcher{store: store}
}

// Classify assigns a category to a transaction. It never fails: malformed or
// empty descriptions classify as Uncategorized without running any strategy.
func (m *Matcher) Classify(txn model.Transaction) model.ClassificationResult {
	desc := NormalizeDescription(txn.Description)
	if desc == "" {
		return unmatched()
	}

	if res, ok := m.exactMerchant(txn, desc); ok {
		return res
	}
	if res, ok := m.keyword(desc); ok {
		return res
	}
	if res, ok := m.fuzzy(desc); ok {
		return res
	}
	return unmatched()
}

func unmatched() model.ClassificationResult {
	return model.ClassificationResult{
		Category:   model.Uncategorized,
		Method:     model.MethodNone,
		Confidence: 0,
	}
}

// exactMerchant matches the transaction's merchant key, or any known merchant
// appearing inside the description, against learned mappings and category
// merchant lists. Longer merchant keys are tried first so the most specific
// entry wins when several are embedded in the same description.
func (m *Matcher) exactMerchant(txn model.Transaction, desc string) (model.ClassificationResult, bool) {
	if key := rules.Key(txn.MerchantName); key != "" {
		if category, ok := m.store.MerchantCategory(key); ok {
			return exactResult(category), true
		}
	}

	merchants := m.store.KnownMerchants()
	sort.SliceStable(merchants, func(i, j int) bool {
		return len(merchants[i]) > len(merchants[j])
	})
	for _, key := range merchants {
		if key == desc || strings.Contains(desc, key) {
			if category, ok := m.store.MerchantCategory(key); ok {
				return exactResult(category), true
			}
		}
	}
	return model.ClassificationResult{}, false
}

func exactResult(category string) model.ClassificationResult {
	return model.ClassificationResult{
		Category:   category,
		Method:     model.MethodExactMerchant,
		Confidence: 100,
	}
}

// keyword scans every category's keyword set for substrings of the
// description. The longest matching keyword wins; on equal length the
// category declared first in the configuration wins.
func (m *Matcher) keyword(desc string) (model.ClassificationResult, bool) {
	bestCategory := ""
	bestLen := 0
	for _, rule := range m.store.Categories() {
		for _, keyword := range rule.Keywords {
			kw := rules.Key(keyword)
			if kw == "" || !strings.Contains(desc, kw) {
				continue
			}
			if len(kw) > bestLen {
				bestCategory = rule.Name
				bestLen = len(kw)
			}
		}
	}
	if bestCategory == "" {
		return model.ClassificationResult{}, false
	}
	return model.ClassificationResult{
		Category:   bestCategory,
		Method:     model.MethodKeyword,
		Confidence: 100,
	}, true
}

// fuzzy scores the description against every known merchant and accepts the
// best score at or above the configured threshold. KnownMerchants is sorted,
// and only a strictly higher score replaces the candidate, so equal top
// scores resolve to the alphabetically lowest merchant.
func (m *Matcher) fuzzy(desc string) (model.ClassificationResult, bool) {
	threshold := m.store.Settings().FuzzyMatchThreshold
	bestMerchant := ""
	bestScore := 0
	for _, key := range m.store.KnownMerchants() {
		if score := Similarity(desc, key); score > bestScore {
			bestMerchant = key
			bestScore = score
		}
	}
	if bestMerchant == "" || bestScore < threshold {
		return model.ClassificationResult{}, false
	}
	category, ok := m.store.MerchantCategory(bestMerchant)
	if !ok {
		return model.ClassificationResult{}, false
	}
	return model.ClassificationResult{
		Category:   category,
		Method:     model.MethodFuzzy,
		Confidence: bestScore,
	}, true
}
