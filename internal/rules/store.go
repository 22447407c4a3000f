// Package rules implements the in-memory rule store: category keyword and
// merchant rules, learned merchant mappings, and the validation rule set.
// All mutation funnels through ApplyLearning; reads are safe during a batch.
package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
)

// Store holds all classification and validation rules for one run. Callers
// persist learned mappings back to durable storage between runs; the store
// itself never touches disk.
type Store struct {
	mu            sync.RWMutex
	categories    []model.CategoryRule
	catIndex      map[string]int
	mappings      map[string]model.MerchantMapping
	ruleMerchants map[string]string
	ranges        map[string]model.MerchantRange
	thresholds    map[string]model.CategoryThreshold
	bands         []model.GlobalBand
	settings      Settings
}

// Load parses the configuration into a Store. It rejects the whole config on
// the first structural problem; there is no partial load.
func Load(cfg Config) (*Store, error) {
	if len(cfg.Categories) == 0 {
		return nil, fmt.Errorf("%w: categories section is required", common.ErrMissingConfig)
	}
	if len(cfg.Validation.GlobalBands) == 0 {
		return nil, fmt.Errorf("%w: validation.global_bands section is required", common.ErrMissingConfig)
	}

	settings := cfg.Settings.resolve()
	if err := settings.validate(); err != nil {
		return nil, err
	}

	s := &Store{
		catIndex:      make(map[string]int, len(cfg.Categories)),
		mappings:      make(map[string]model.MerchantMapping),
		ruleMerchants: make(map[string]string),
		ranges:        make(map[string]model.MerchantRange, len(cfg.Validation.MerchantRanges)),
		thresholds:    make(map[string]model.CategoryThreshold, len(cfg.Validation.CategoryThresholds)),
		settings:      settings,
	}

	for _, cc := range cfg.Categories {
		if cc.Name == "" {
			return nil, fmt.Errorf("%w: category with empty name", common.ErrInvalidConfig)
		}
		if cc.Name == model.Uncategorized {
			return nil, fmt.Errorf("%w: %q is a reserved category name", common.ErrInvalidConfig, model.Uncategorized)
		}
		if _, dup := s.catIndex[cc.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", common.ErrInvalidConfig, cc.Name)
		}
		rule := model.CategoryRule{
			Name:      cc.Name,
			Keywords:  append([]string(nil), cc.Keywords...),
			Merchants: append([]string(nil), cc.Merchants...),
		}
		for _, merchant := range cc.Merchants {
			key := Key(merchant)
			if key == "" {
				return nil, fmt.Errorf("%w: category %q has an empty merchant entry", common.ErrInvalidConfig, cc.Name)
			}
			if owner, claimed := s.ruleMerchants[key]; claimed && owner != cc.Name {
				return nil, fmt.Errorf("%w: merchant %q listed under both %q and %q",
					common.ErrInvalidConfig, merchant, owner, cc.Name)
			}
			s.ruleMerchants[key] = cc.Name
		}
		s.catIndex[cc.Name] = len(s.categories)
		s.categories = append(s.categories, rule)
	}

	for merchant, rc := range cfg.Validation.MerchantRanges {
		r := model.MerchantRange{
			Merchant:      Key(merchant),
			MinAmount:     decimal.NewFromFloat(rc.MinAmount),
			MaxAmount:     decimal.NewFromFloat(rc.MaxAmount),
			BillingCycles: rc.BillingCycles,
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
		}
		s.ranges[r.Merchant] = r
	}

	for category, tc := range cfg.Validation.CategoryThresholds {
		t := model.CategoryThreshold{
			Category:  category,
			MinAmount: decimal.NewFromFloat(tc.MinAmount),
			MaxAmount: decimal.NewFromFloat(tc.MaxAmount),
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
		}
		if _, known := s.catIndex[category]; !known {
			return nil, fmt.Errorf("%w: threshold references unknown category %q", common.ErrInvalidConfig, category)
		}
		s.thresholds[category] = t
	}

	bands, err := buildBands(cfg.Validation.GlobalBands)
	if err != nil {
		return nil, err
	}
	s.bands = bands

	return s, nil
}

// buildBands validates that the configured bands are ascending, contiguous,
// start at zero, and end with a single open-ended band.
func buildBands(cfgs []BandConfig) ([]model.GlobalBand, error) {
	bands := make([]model.GlobalBand, 0, len(cfgs))
	for i, bc := range cfgs {
		band := model.GlobalBand{
			Label:     bc.Label,
			Lower:     decimal.NewFromFloat(bc.Lower),
			Upper:     decimal.NewFromFloat(bc.Upper),
			MaxCap:    decimal.NewFromFloat(bc.MaxCap),
			Unbounded: bc.Upper == 0,
		}
		last := i == len(cfgs)-1
		if band.Unbounded && !last {
			return nil, fmt.Errorf("%w: band %q: only the last band may omit an upper bound",
				common.ErrInvalidConfig, bc.Label)
		}
		if !band.Unbounded && last {
			return nil, fmt.Errorf("%w: band %q: the last band must be open-ended",
				common.ErrInvalidConfig, bc.Label)
		}
		if i == 0 && !band.Lower.IsZero() {
			return nil, fmt.Errorf("%w: band %q: the first band must start at 0",
				common.ErrInvalidConfig, bc.Label)
		}
		if i > 0 && !band.Lower.Equal(bands[i-1].Upper) {
			return nil, fmt.Errorf("%w: band %q: lower bound %s leaves a gap or overlap after %s",
				common.ErrInvalidConfig, bc.Label, band.Lower, bands[i-1].Upper)
		}
		if err := band.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
		}
		bands = append(bands, band)
	}
	return bands, nil
}

// Categories returns the category rules in declaration order. The inner
// slices are copied too, so a snapshot stays stable across ApplyLearning.
func (s *Store) Categories() []model.CategoryRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CategoryRule, len(s.categories))
	for i, c := range s.categories {
		out[i] = model.CategoryRule{
			Name:      c.Name,
			Keywords:  append([]string(nil), c.Keywords...),
			Merchants: append([]string(nil), c.Merchants...),
		}
	}
	return out
}

// CategoryNames returns the configured category names in declaration order.
func (s *Store) CategoryNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.categories))
	for i, c := range s.categories {
		names[i] = c.Name
	}
	return names
}

// HasCategory reports whether the category is configured.
func (s *Store) HasCategory(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.catIndex[name]
	return ok
}

// LookupMerchant returns the learned mapping for a normalized merchant key.
func (s *Store) LookupMerchant(key string) (model.MerchantMapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[key]
	return m, ok
}

// MerchantCategory resolves a normalized merchant key to its category.
// Learned mappings outrank category merchant lists.
func (s *Store) MerchantCategory(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.mappings[key]; ok {
		return m.Category, true
	}
	if category, ok := s.ruleMerchants[key]; ok {
		return category, true
	}
	return "", false
}

// KnownMerchants returns every merchant key the store can resolve, sorted for
// deterministic iteration.
func (s *Store) KnownMerchants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.mappings)+len(s.ruleMerchants))
	for key := range s.mappings {
		seen[key] = struct{}{}
	}
	for key := range s.ruleMerchants {
		seen[key] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MerchantRange returns the authoritative amount range for a merchant key.
func (s *Store) MerchantRange(key string) (model.MerchantRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ranges[key]
	return r, ok
}

// RangeMerchants returns the merchant keys that carry ranges, sorted.
func (s *Store) RangeMerchants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.ranges))
	for key := range s.ranges {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CategoryThreshold returns the advisory amount range for a category.
func (s *Store) CategoryThreshold(category string) (model.CategoryThreshold, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.thresholds[category]
	return t, ok
}

// Bands returns the global amount bands in ascending order.
func (s *Store) Bands() []model.GlobalBand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.GlobalBand, len(s.bands))
	copy(out, s.bands)
	return out
}

// Settings returns the matcher and validation tunables.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Mappings returns all learned mappings sorted by merchant key.
func (s *Store) Mappings() []model.MerchantMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MerchantMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Merchant < out[j].Merchant })
	return out
}

// ApplyLearning upserts a learned merchant mapping and moves the merchant
// into the target category's merchant list, removing it from any other
// category so at most one category owns a merchant at any time. Re-applying
// an identical mapping is a no-op and returns the existing entry.
func (s *Store) ApplyLearning(merchant, category string) (model.MerchantMapping, error) {
	key := Key(merchant)
	if key == "" {
		return model.MerchantMapping{}, fmt.Errorf("%w: empty merchant", common.ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.catIndex[category]
	if !ok {
		return model.MerchantMapping{}, fmt.Errorf("%w: %q", common.ErrUnknownCategory, category)
	}

	if existing, ok := s.mappings[key]; ok && existing.Category == category {
		return existing, nil
	}

	mapping := model.MerchantMapping{
		Merchant:    key,
		Category:    category,
		Source:      model.SourceLearned,
		LastUpdated: time.Now(),
		UseCount:    1,
	}
	if prior, ok := s.mappings[key]; ok {
		mapping.UseCount = prior.UseCount + 1
	}
	s.mappings[key] = mapping

	for i := range s.categories {
		if i == idx {
			continue
		}
		s.categories[i].Merchants = removeMerchant(s.categories[i].Merchants, key)
	}
	if !containsMerchant(s.categories[idx].Merchants, key) {
		s.categories[idx].Merchants = append(s.categories[idx].Merchants, key)
	}
	s.ruleMerchants[key] = category

	return mapping, nil
}

// SeedMappings loads previously persisted learned mappings into the store at
// startup. Mappings that reference a category no longer in the config are
// skipped. Returns the number applied.
func (s *Store) SeedMappings(mappings []model.MerchantMapping) int {
	applied := 0
	for _, m := range mappings {
		key := Key(m.Merchant)
		if key == "" {
			continue
		}

		s.mu.Lock()
		idx, ok := s.catIndex[m.Category]
		if !ok {
			s.mu.Unlock()
			slog.Warn("Skipping persisted mapping for unknown category",
				"merchant", m.Merchant, "category", m.Category)
			continue
		}
		seeded := m
		seeded.Merchant = key
		s.mappings[key] = seeded
		for i := range s.categories {
			if i == idx {
				continue
			}
			s.categories[i].Merchants = removeMerchant(s.categories[i].Merchants, key)
		}
		if !containsMerchant(s.categories[idx].Merchants, key) {
			s.categories[idx].Merchants = append(s.categories[idx].Merchants, key)
		}
		s.ruleMerchants[key] = m.Category
		s.mu.Unlock()

		applied++
	}
	return applied
}

func removeMerchant(merchants []string, key string) []string {
	out := merchants[:0]
	for _, m := range merchants {
		if Key(m) != key {
			out = append(out, m)
		}
	}
	return out
}

func containsMerchant(merchants []string, key string) bool {
	for _, m := range merchants {
		if Key(m) == key {
			return true
		}
	}
	return false
}
