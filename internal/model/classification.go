package model

// Uncategorized is the sentinel category assigned when no rule matches.
const Uncategorized = "Uncategorized"

// MatchMethod indicates which matching strategy categorized a transaction.
type MatchMethod string

// Match method constants, in descending priority order.
const (
	MethodExactMerchant MatchMethod = "exact_merchant"
	MethodKeyword       MatchMethod = "keyword"
	MethodFuzzy         MatchMethod = "fuzzy"
	MethodNone          MatchMethod = "none"
)

// ClassificationResult represents the outcome of classifying one transaction.
type ClassificationResult struct {
	Category   string
	Method     MatchMethod
	Confidence int // 0-100; 100 for exact/keyword matches, similarity score for fuzzy
}

// Categorized reports whether the transaction received a real category.
func (r ClassificationResult) Categorized() bool {
	return r.Category != "" && r.Category != Uncategorized
}
