// Package learn persists human-confirmed merchant corrections into the rule
// store. Which transactions deserve review is decided elsewhere; the learner
// only records finalized (merchant, category) pairs.
package learn

import (
	"context"
	"fmt"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

// MappingStore is the durable side of learning. The rule store reloads from
// it at the next startup; there is no live cross-process sync.
type MappingStore interface {
	SaveMapping(ctx context.Context, mapping *model.MerchantMapping) error
}

// Learner applies confirmed corrections to the rule store and mirrors them
// into durable storage.
type Learner struct {
	store   *rules.Store
	persist MappingStore
}

// New creates a learner. persist may be nil for in-memory-only runs.
func New(store *rules.Store, persist MappingStore) *Learner {
	return &Learner{store: store, persist: persist}
}

// RecordCorrection upserts a human-confirmed merchant-to-category pair. The
// category must already be configured; recording the same pair twice is a
// no-op on the second call. Callers must not invoke this while a
// classification batch is in flight over the same store.
func (l *Learner) RecordCorrection(ctx context.Context, merchant, category string) error {
	key := rules.Key(merchant)
	if key == "" {
		return common.NewUserError("merchant must not be empty", nil)
	}
	if !l.store.HasCategory(category) {
		return fmt.Errorf("%w: %q", common.ErrUnknownCategory, category)
	}

	if existing, ok := l.store.LookupMerchant(key); ok && existing.Category == category {
		return nil
	}

	mapping, err := l.store.ApplyLearning(merchant, category)
	if err != nil {
		return err
	}

	if l.persist != nil {
		if err := l.persist.SaveMapping(ctx, &mapping); err != nil {
			return fmt.Errorf("failed to persist learned mapping for %q: %w", key, err)
		}
	}
	return nil
}
