package validate

import (
	"math"

	"github.com/siftd/sift/internal/match"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

// Distribution summarizes the amount magnitudes of one transaction group.
type Distribution struct {
	Count  int
	Mean   float64
	StdDev float64
}

// BatchStats holds the per-batch aggregates the heuristic tier consults.
// They are computed once, after classification and before validation, and
// never mutated by the pipeline.
type BatchStats struct {
	Overall    Distribution
	ByMerchant map[string]Distribution
	ByCategory map[string]Distribution
}

// ComputeBatchStats aggregates amount magnitudes across a classified batch.
// results must line up index-for-index with txns.
func ComputeBatchStats(txns []model.Transaction, results []model.ClassificationResult) *BatchStats {
	overall := make([]float64, 0, len(txns))
	byMerchant := make(map[string][]float64)
	byCategory := make(map[string][]float64)

	for i, txn := range txns {
		if !txn.Amount.Valid {
			continue
		}
		mag := txn.Magnitude().InexactFloat64()
		overall = append(overall, mag)
		if key := merchantKey(txn); key != "" {
			byMerchant[key] = append(byMerchant[key], mag)
		}
		if i < len(results) && results[i].Categorized() {
			byCategory[results[i].Category] = append(byCategory[results[i].Category], mag)
		}
	}

	stats := &BatchStats{
		Overall:    distribution(overall),
		ByMerchant: make(map[string]Distribution, len(byMerchant)),
		ByCategory: make(map[string]Distribution, len(byCategory)),
	}
	for key, mags := range byMerchant {
		stats.ByMerchant[key] = distribution(mags)
	}
	for category, mags := range byCategory {
		stats.ByCategory[category] = distribution(mags)
	}
	return stats
}

// merchantKey resolves the grouping key for merchant-level aggregates,
// falling back to the normalized description when the loader extracted no
// merchant name.
func merchantKey(txn model.Transaction) string {
	if key := rules.Key(txn.MerchantName); key != "" {
		return key
	}
	return match.NormalizeDescription(txn.Description)
}

func distribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	if n > 1 {
		for _, v := range values {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(n - 1)
	}
	return Distribution{
		Count:  n,
		Mean:   mean,
		StdDev: math.Sqrt(variance),
	}
}
