package parsers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/pkg/errors"
)

// dateLayouts are tried in order when parsing source dates. Day-first
// layouts come before month-first because the supported bank exports use
// day-first dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// currencyReplacer strips currency symbols, thousands separators and
// whitespace from amount text.
var currencyReplacer = strings.NewReplacer(
	"$", "", "USD", "", "usd", "", "ZWL", "", "zwl", "", ",", "", " ", "", "\t", "",
)

// Normalize converts raw records into canonical transactions tagged with
// source. Records whose date or amount cannot be parsed are reported and
// dropped; duplicates (identical content hash) are counted and dropped.
func Normalize(records []RawRecord, source models.SourceTag, file string) ([]*models.Transaction, []*errors.ReconcilerError, int) {
	var transactions []*models.Transaction
	var rowErrors []*errors.ReconcilerError
	seen := make(map[string]bool)
	duplicates := 0

	for _, record := range records {
		date, err := ParseDate(record.DateText)
		if err != nil {
			rowErrors = append(rowErrors, errors.ParseError(errors.CodeInvalidDate, file, record.Line, record.DateText, err))
			continue
		}

		amount, err := ParseAmount(record.AmountText)
		if err != nil {
			rowErrors = append(rowErrors, errors.ParseError(errors.CodeInvalidAmount, file, record.Line, record.AmountText, err))
			continue
		}

		reference := models.NormalizeReference(record.Reference)
		description := models.NormalizeDescription(record.Description)
		id := transactionID(source, date, amount, reference, description)

		if seen[id] {
			duplicates++
			continue
		}
		seen[id] = true

		transactions = append(transactions, &models.Transaction{
			ID:          id,
			Reference:   reference,
			Amount:      amount,
			Date:        date,
			Description: description,
			Source:      source,
		})
	}

	return transactions, rowErrors, duplicates
}

// ParseDate tries each supported layout in order.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, text); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported date format: %q", text)
}

// ParseAmount cleans currency decoration and parses a decimal amount.
// Accounting-style parentheses mean a negative value.
func ParseAmount(text string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	cleaned = currencyReplacer.Replace(cleaned)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("no digits in amount: %q", text)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q: %w", text, err)
	}

	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// transactionID derives a stable 16 character hex ID from the normalized
// record content, so re-parsing the same file yields the same IDs.
func transactionID(source models.SourceTag, date time.Time, amount decimal.Decimal, reference, description string) string {
	payload := strings.Join([]string{
		string(source),
		date.Format("2006-01-02"),
		amount.String(),
		reference,
		description,
	}, "|")

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:16]
}
