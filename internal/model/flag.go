package model

// Severity classifies how serious a validation flag is.
type Severity string

const (
	// SeverityError marks authoritative violations that should block export.
	SeverityError Severity = "error"
	// SeverityWarning marks advisory findings routed to manual review.
	SeverityWarning Severity = "warning"
)

// ReasonCode is a structured identifier for why a flag was raised.
type ReasonCode string

// Reason code constants, grouped by tier.
const (
	ReasonMissingField      ReasonCode = "missing_field"
	ReasonInvalidFormat     ReasonCode = "invalid_format"
	ReasonZeroAmount        ReasonCode = "zero_amount"
	ReasonMerchantRange     ReasonCode = "merchant_range"
	ReasonCategoryThreshold ReasonCode = "category_threshold"
	ReasonBandCapExceeded   ReasonCode = "band_cap_exceeded"
	ReasonAmountOutlier     ReasonCode = "amount_outlier"
	ReasonDateOutOfWindow   ReasonCode = "date_out_of_window"
)

// ValidationFlag records one validation finding against a transaction.
// Flags never mutate the transaction or its classification.
type ValidationFlag struct {
	Tier          int // 0 structural, 1 merchant, 2 category, 3 global band, 4 heuristic
	Severity      Severity
	Code          ReasonCode
	Reason        string // Human-readable explanation
	TransactionID string
}
