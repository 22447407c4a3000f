package validate

import (
	"fmt"
	"math"
	"time"

	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

// Scorer is the pluggable heuristic behind tier 4. Implementations receive
// the transaction, its classification, and the read-only batch aggregates,
// and return advisory flags. False positives are acceptable; flags at this
// tier route to manual review, never auto-reject.
type Scorer interface {
	Score(txn model.Transaction, result model.ClassificationResult, stats *BatchStats) []model.ValidationFlag
}

// minOutlierSamples is the smallest group a deviation is measured against;
// below it the group statistics are too noisy to flag on.
const minOutlierSamples = 3

// ZScoreScorer flags amounts many deviations away from the batch average for
// their merchant (or category, or the whole batch when the narrower group is
// too small), and dates outside the configured acceptance window.
type ZScoreScorer struct {
	now         func() time.Time
	multiplier  float64
	retention   int
	allowFuture bool
}

// NewZScoreScorer builds the default tier-4 scorer from store settings.
func NewZScoreScorer(settings rules.Settings) *ZScoreScorer {
	return &ZScoreScorer{
		now:         time.Now,
		multiplier:  settings.OutlierMultiplier,
		retention:   settings.RetentionYears,
		allowFuture: settings.AllowFuture,
	}
}

// Score implements Scorer.
func (s *ZScoreScorer) Score(txn model.Transaction, result model.ClassificationResult, stats *BatchStats) []model.ValidationFlag {
	var flags []model.ValidationFlag

	if txn.Amount.Valid && stats != nil {
		if flag, ok := s.scoreAmount(txn, result, stats); ok {
			flags = append(flags, flag)
		}
	}
	if !txn.Date.IsZero() {
		if flag, ok := s.scoreDate(txn); ok {
			flags = append(flags, flag)
		}
	}
	return flags
}

func (s *ZScoreScorer) scoreAmount(txn model.Transaction, result model.ClassificationResult, stats *BatchStats) (model.ValidationFlag, bool) {
	dist, scope := s.pickDistribution(txn, result, stats)
	if dist.Count < minOutlierSamples {
		return model.ValidationFlag{}, false
	}

	mag := txn.Magnitude().InexactFloat64()
	unusual := false
	reason := ""
	switch {
	case dist.StdDev > 0:
		z := math.Abs(mag-dist.Mean) / dist.StdDev
		if z >= s.multiplier {
			unusual = true
			reason = fmt.Sprintf("amount %.2f is %.1f standard deviations from the %s average %.2f",
				mag, z, scope, dist.Mean)
		}
	case dist.Mean > 0:
		if mag > s.multiplier*dist.Mean {
			unusual = true
			reason = fmt.Sprintf("amount %.2f is more than %.1fx the %s average %.2f",
				mag, s.multiplier, scope, dist.Mean)
		}
	}
	if !unusual {
		return model.ValidationFlag{}, false
	}
	return model.ValidationFlag{
		Tier:          4,
		Severity:      model.SeverityWarning,
		Code:          model.ReasonAmountOutlier,
		Reason:        reason,
		TransactionID: txn.ID,
	}, true
}

// pickDistribution prefers the narrowest aggregate with enough samples:
// merchant, then category, then the whole batch.
func (s *ZScoreScorer) pickDistribution(txn model.Transaction, result model.ClassificationResult, stats *BatchStats) (Distribution, string) {
	if key := merchantKey(txn); key != "" {
		if dist, ok := stats.ByMerchant[key]; ok && dist.Count >= minOutlierSamples {
			return dist, "merchant"
		}
	}
	if result.Categorized() {
		if dist, ok := stats.ByCategory[result.Category]; ok && dist.Count >= minOutlierSamples {
			return dist, "category"
		}
	}
	return stats.Overall, "batch"
}

func (s *ZScoreScorer) scoreDate(txn model.Transaction) (model.ValidationFlag, bool) {
	now := s.now()
	if !s.allowFuture && txn.Date.After(now) {
		return model.ValidationFlag{
			Tier:          4,
			Severity:      model.SeverityWarning,
			Code:          model.ReasonDateOutOfWindow,
			Reason:        fmt.Sprintf("transaction is future-dated (%s)", txn.Date.Format("2006-01-02")),
			TransactionID: txn.ID,
		}, true
	}
	horizon := now.AddDate(-s.retention, 0, 0)
	if txn.Date.Before(horizon) {
		reason := fmt.Sprintf("transaction date %s is older than the %d year retention horizon",
			txn.Date.Format("2006-01-02"), s.retention)
		return model.ValidationFlag{
			Tier:          4,
			Severity:      model.SeverityWarning,
			Code:          model.ReasonDateOutOfWindow,
			Reason:        reason,
			TransactionID: txn.ID,
		}, true
	}
	return model.ValidationFlag{}, false
}
