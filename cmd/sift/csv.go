package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/siftd/sift/internal/model"
)

// CSV loading is glue, not core: it hands the engine normalized transactions
// and leaves unparseable values in the raw text fields so tier-0 validation
// can flag them instead of dropping the record.

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"Jan 2, 2006",
}

func loadTransactionsCSV(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	cols := columnIndexes(header)
	if cols.description < 0 || cols.amount < 0 || cols.date < 0 {
		return nil, fmt.Errorf("input must have date, description, and amount columns")
	}

	var txns []model.Transaction
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row+1, err)
		}
		row++

		txn := model.Transaction{
			ID:          fmt.Sprintf("row-%d", row),
			Description: field(record, cols.description),
		}
		if cols.merchant >= 0 {
			txn.MerchantName = field(record, cols.merchant)
		}

		if raw := field(record, cols.date); raw != "" {
			if parsed, ok := parseDate(raw); ok {
				txn.Date = parsed
			} else {
				txn.DateText = raw
			}
		}
		if raw := field(record, cols.amount); raw != "" {
			if amount, ok := parseAmount(raw); ok {
				txn.Amount = decimal.NullDecimal{Decimal: amount, Valid: true}
			} else {
				txn.AmountText = raw
			}
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

type csvColumns struct {
	date        int
	description int
	amount      int
	merchant    int
}

func columnIndexes(header []string) csvColumns {
	cols := csvColumns{date: -1, description: -1, amount: -1, merchant: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "transaction date", "posted date":
			cols.date = i
		case "description", "details", "memo", "payee":
			cols.description = i
		case "amount", "value", "transaction amount":
			cols.amount = i
		case "merchant", "merchant name":
			cols.merchant = i
		}
	}
	return cols
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount accepts currency symbols, thousands separators, and the
// accounting convention of parentheses for negative values.
func parseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + strings.Trim(cleaned, "()")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}
