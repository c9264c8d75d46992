package parsers

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"payment-reconciliation-engine/pkg/errors"
)

// TextTransferParser reads pipe-delimited interbank transfer logs:
//
//	2024-01-15 | TRN-4451 | 250.00 | salary transfer
//
// Blank lines and # comments are skipped.
type TextTransferParser struct{}

// NewTextTransferParser creates a parser for transfer logs.
func NewTextTransferParser() *TextTransferParser {
	return &TextTransferParser{}
}

// Format returns FormatTextTransfer.
func (p *TextTransferParser) Format() Format {
	return FormatTextTransfer
}

// Parse reads transfers line by line, rejecting lines without the four
// pipe-delimited fields.
func (p *TextTransferParser) Parse(r io.Reader) ([]RawRecord, []*errors.ReconcilerError) {
	var records []RawRecord
	var rowErrors []*errors.ReconcilerError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) != 4 {
			rowErrors = append(rowErrors, errors.ParseError(errors.CodeMalformedRow, "transfer log", line,
				truncate(text, 80), fmt.Errorf("expected 4 pipe-delimited fields, got %d", len(fields))))
			continue
		}

		records = append(records, RawRecord{
			DateText:    strings.TrimSpace(fields[0]),
			Reference:   strings.TrimSpace(fields[1]),
			AmountText:  strings.TrimSpace(fields[2]),
			Description: strings.TrimSpace(fields[3]),
			Line:        line,
		})
	}

	if err := scanner.Err(); err != nil {
		rowErrors = append(rowErrors, errors.ParseError(errors.CodeMalformedRow, "transfer log", line, "", err))
	}

	return records, rowErrors
}
