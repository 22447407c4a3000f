// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single normalized financial transaction handed to
// the core by an external loader. The core never mutates it; classification
// and validation results are carried separately.
type Transaction struct {
	Date         time.Time
	ID           string
	Description  string              // Raw transaction description
	MerchantName string              // Cleaned merchant name, when the loader extracted one
	Amount       decimal.NullDecimal // Signed; negative = outflow, positive = inflow
	DateText     string              // Raw date text when the loader could not parse it
	AmountText   string              // Raw amount text when the loader could not parse it
}

// Magnitude returns the absolute transaction amount. The zero decimal is
// returned when the amount is missing.
func (t *Transaction) Magnitude() decimal.Decimal {
	if !t.Amount.Valid {
		return decimal.Zero
	}
	return t.Amount.Decimal.Abs()
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	amount := ""
	if t.Amount.Valid {
		amount = t.Amount.Decimal.StringFixed(2)
	}
	data := fmt.Sprintf("%s:%s:%s",
		t.Date.Format("2006-01-02"),
		amount,
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
