package parsers

import (
	"bufio"
	"bytes"
	"strings"

	"payment-reconciliation-engine/pkg/errors"
)

// Format identifies a supported source file format.
type Format string

const (
	// FormatAuto asks the parser layer to detect the format from content.
	FormatAuto Format = "auto"
	// FormatBankCSV is a comma-separated bank statement export with a
	// header row.
	FormatBankCSV Format = "bank"
	// FormatMobileMoney is a mobile money confirmation log, one SMS-style
	// message per line.
	FormatMobileMoney Format = "mobilemoney"
	// FormatTextTransfer is a pipe-delimited interbank transfer log.
	FormatTextTransfer Format = "transfer"
)

// String returns the string representation of Format.
func (f Format) String() string {
	return string(f)
}

// ParseFormat converts a user-supplied format name into a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "bank", "csv", "bankcsv":
		return FormatBankCSV, nil
	case "mobilemoney", "mobile", "momo":
		return FormatMobileMoney, nil
	case "transfer", "text", "texttransfer":
		return FormatTextTransfer, nil
	default:
		return "", errors.ParseError(errors.CodeUnknownFormat, name, 0, name, nil)
	}
}

// DetectFormat inspects file content and decides which parser applies.
// Detection looks at the first non-empty, non-comment lines: a pipe
// delimiter marks a transfer log, a mobile money confirmation phrase marks
// an SMS log, and a comma-separated header row with date and amount columns
// marks a bank CSV.
func DetectFormat(path string, data []byte) (Format, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, "|") {
			return FormatTextTransfer, nil
		}

		lower := strings.ToLower(line)
		if mobileMoneyLine.MatchString(line) {
			return FormatMobileMoney, nil
		}

		if strings.Contains(line, ",") &&
			strings.Contains(lower, "date") && strings.Contains(lower, "amount") {
			return FormatBankCSV, nil
		}

		break
	}

	return "", errors.ParseError(errors.CodeUnknownFormat, path, 0, "", nil)
}
