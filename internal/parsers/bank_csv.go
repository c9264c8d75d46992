package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"payment-reconciliation-engine/pkg/errors"
)

// bankCSVColumns maps recognized header names to canonical fields. Bank
// exports vary in naming but not in substance.
var bankCSVColumns = map[string]string{
	"date":             "date",
	"transaction date": "date",
	"value date":       "date",
	"amount":           "amount",
	"value":            "amount",
	"debit/credit":     "amount",
	"reference":        "reference",
	"ref":              "reference",
	"transaction ref":  "reference",
	"description":      "description",
	"narrative":        "description",
	"details":          "description",
}

// BankCSVParser reads comma-separated bank statement exports. The first row
// must be a header; column order is free.
type BankCSVParser struct{}

// NewBankCSVParser creates a parser for bank CSV exports.
func NewBankCSVParser() *BankCSVParser {
	return &BankCSVParser{}
}

// Format returns FormatBankCSV.
func (p *BankCSVParser) Format() Format {
	return FormatBankCSV
}

// Parse reads all rows. Rows with the wrong column count or with no usable
// date or amount are rejected individually.
func (p *BankCSVParser) Parse(r io.Reader) ([]RawRecord, []*errors.ReconcilerError) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, []*errors.ReconcilerError{
			errors.ParseError(errors.CodeMalformedRow, "bank csv", 1, "missing header row", err),
		}
	}

	columns := make(map[int]string)
	for i, name := range header {
		if field, ok := bankCSVColumns[strings.ToLower(strings.TrimSpace(name))]; ok {
			columns[i] = field
		}
	}
	if !hasColumn(columns, "date") || !hasColumn(columns, "amount") {
		return nil, []*errors.ReconcilerError{
			errors.ParseError(errors.CodeMalformedRow, "bank csv", 1,
				strings.Join(header, ","), fmt.Errorf("header must include date and amount columns")),
		}
	}

	var records []RawRecord
	var rowErrors []*errors.ReconcilerError
	line := 1

	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, errors.ParseError(errors.CodeMalformedRow, "bank csv", line, "", err))
			continue
		}

		record := RawRecord{Line: line}
		for i, value := range row {
			switch columns[i] {
			case "date":
				record.DateText = strings.TrimSpace(value)
			case "amount":
				record.AmountText = strings.TrimSpace(value)
			case "reference":
				record.Reference = strings.TrimSpace(value)
			case "description":
				record.Description = strings.TrimSpace(value)
			}
		}

		if record.DateText == "" || record.AmountText == "" {
			rowErrors = append(rowErrors, errors.ParseError(errors.CodeMalformedRow, "bank csv", line,
				strings.Join(row, ","), fmt.Errorf("row has empty date or amount")))
			continue
		}

		records = append(records, record)
	}

	return records, rowErrors
}

func hasColumn(columns map[int]string, field string) bool {
	for _, f := range columns {
		if f == field {
			return true
		}
	}
	return false
}
