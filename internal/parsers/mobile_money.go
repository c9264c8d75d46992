package parsers

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"payment-reconciliation-engine/pkg/errors"
)

// mobileMoneyLine matches one confirmation message, e.g.
//
//	Confirmed. You have received $250.00 from ACME LTD on 15/01/2024 Ref: MM48213
//	Sent $12.50 to JOHN MOYO on 2024-01-16 Ref: MM48290
//
// Group order: direction, amount, counterparty, date, reference.
var mobileMoneyLine = regexp.MustCompile(
	`(?i)\b(received|sent|paid)\s+\$?([\d,]+(?:\.\d+)?)\s+(?:from|to)\s+(.+?)\s+on\s+([0-9]{1,4}[/-][0-9]{1,2}[/-][0-9]{2,4})\b.*?\bref[:. ]\s*([A-Za-z0-9-]+)`)

// MobileMoneyParser reads mobile money confirmation logs, one message per
// line. Outgoing messages (sent, paid) produce negative amounts.
type MobileMoneyParser struct{}

// NewMobileMoneyParser creates a parser for mobile money logs.
func NewMobileMoneyParser() *MobileMoneyParser {
	return &MobileMoneyParser{}
}

// Format returns FormatMobileMoney.
func (p *MobileMoneyParser) Format() Format {
	return FormatMobileMoney
}

// Parse reads messages line by line. Blank lines and # comments are
// skipped; lines that do not match the confirmation pattern are rejected
// individually.
func (p *MobileMoneyParser) Parse(r io.Reader) ([]RawRecord, []*errors.ReconcilerError) {
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

		groups := mobileMoneyLine.FindStringSubmatch(text)
		if groups == nil {
			rowErrors = append(rowErrors, errors.ParseError(errors.CodeMalformedRow, "mobile money log", line,
				truncate(text, 80), fmt.Errorf("line does not match a confirmation message")))
			continue
		}

		amount := groups[2]
		direction := strings.ToLower(groups[1])
		if direction == "sent" || direction == "paid" {
			amount = "-" + amount
		}

		records = append(records, RawRecord{
			DateText:    groups[4],
			AmountText:  amount,
			Reference:   groups[5],
			Description: strings.TrimSpace(groups[3]),
			Line:        line,
		})
	}

	if err := scanner.Err(); err != nil {
		rowErrors = append(rowErrors, errors.ParseError(errors.CodeMalformedRow, "mobile money log", line, "", err))
	}

	return records, rowErrors
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
