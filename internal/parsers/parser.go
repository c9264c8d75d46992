// Package parsers turns source files in any supported format into canonical
// transactions. Each format has its own parser producing raw records; the
// normalizer then cleans values, assigns stable IDs and drops duplicates.
package parsers

import (
	"bytes"
	"io"
	"os"

	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/pkg/errors"
	"payment-reconciliation-engine/pkg/logger"
)

// RawRecord is one row as read from a source file, before normalization.
// All values are kept as text so parse failures can be reported with the
// original input.
type RawRecord struct {
	DateText    string
	AmountText  string
	Reference   string
	Description string
	Line        int
}

// Parser reads raw records from one source format. Row-level failures are
// collected rather than aborting the file.
type Parser interface {
	// Format returns the format this parser handles.
	Format() Format

	// Parse reads all records from r. The returned errors are row-level
	// and never prevent other rows from parsing.
	Parse(r io.Reader) ([]RawRecord, []*errors.ReconcilerError)
}

// ParseStats summarizes one file's journey through parsing and
// normalization.
type ParseStats struct {
	Format       Format `json:"format"`
	RowsRead     int    `json:"rows_read"`
	RowsRejected int    `json:"rows_rejected"`
	Duplicates   int    `json:"duplicates"`
	Transactions int    `json:"transactions"`
}

// ForFormat returns the parser for a detected or requested format.
func ForFormat(format Format) (Parser, error) {
	switch format {
	case FormatBankCSV:
		return NewBankCSVParser(), nil
	case FormatMobileMoney:
		return NewMobileMoneyParser(), nil
	case FormatTextTransfer:
		return NewTextTransferParser(), nil
	default:
		return nil, errors.ParseError(errors.CodeUnknownFormat, string(format), 0, "", nil)
	}
}

// ParseFile opens path, detects its format when format is FormatAuto, parses
// it and normalizes the rows into canonical transactions tagged with source.
func ParseFile(path string, format Format, source models.SourceTag, log logger.Logger) ([]*models.Transaction, *ParseStats, []*errors.ReconcilerError, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("parsers")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, nil, nil, errors.FileError(errors.CodeFileUnreadable, path, err)
	}

	if format == FormatAuto {
		format, err = DetectFormat(path, data)
		if err != nil {
			return nil, nil, nil, err
		}
		log.WithFields(logger.Fields{"file": path, "format": format}).Debug("Detected source format")
	}

	parser, err := ForFormat(format)
	if err != nil {
		return nil, nil, nil, err
	}

	records, parseErrors := parser.Parse(bytes.NewReader(data))
	transactions, normErrors, duplicates := Normalize(records, source, path)
	rowErrors := append(parseErrors, normErrors...)

	stats := &ParseStats{
		Format:       format,
		RowsRead:     len(records) + len(parseErrors),
		RowsRejected: len(rowErrors),
		Duplicates:   duplicates,
		Transactions: len(transactions),
	}

	log.WithFields(logger.Fields{
		"file":         path,
		"transactions": stats.Transactions,
		"rejected":     stats.RowsRejected,
		"duplicates":   stats.Duplicates,
	}).Info("Parsed source file")

	return transactions, stats, rowErrors, nil
}
