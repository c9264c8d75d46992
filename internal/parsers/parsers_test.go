package parsers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-reconciliation-engine/internal/models"
)

func TestBankCSVParser(t *testing.T) {
	input := `Date,Amount,Reference,Description
2024-01-15,100.50,INV-001,Payment to ABC Corp
2024-01-16,"1,250.00",INV-002,Rent
2024-01-17,(75.00),INV-003,Refund issued
`
	parser := NewBankCSVParser()
	records, errs := parser.Parse(strings.NewReader(input))

	require.Empty(t, errs)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-01-15", records[0].DateText)
	assert.Equal(t, "100.50", records[0].AmountText)
	assert.Equal(t, "INV-001", records[0].Reference)
	assert.Equal(t, "Payment to ABC Corp", records[0].Description)
	assert.Equal(t, 2, records[0].Line)
}

func TestBankCSVParserFlexibleHeaders(t *testing.T) {
	input := `Transaction Date,Value,Ref,Narrative
15/01/2024,200.00,T-1,groceries
`
	records, errs := NewBankCSVParser().Parse(strings.NewReader(input))

	require.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "15/01/2024", records[0].DateText)
	assert.Equal(t, "T-1", records[0].Reference)
	assert.Equal(t, "groceries", records[0].Description)
}

func TestBankCSVParserRejectsBadRows(t *testing.T) {
	input := `Date,Amount,Reference,Description
2024-01-15,100.00,OK-1,fine
,,missing,both date and amount
2024-01-17,50.00,OK-2,also fine
`
	records, errs := NewBankCSVParser().Parse(strings.NewReader(input))

	assert.Len(t, errs, 1)
	assert.Len(t, records, 2)
}

func TestBankCSVParserMissingHeader(t *testing.T) {
	input := `Foo,Bar
1,2
`
	records, errs := NewBankCSVParser().Parse(strings.NewReader(input))

	assert.Empty(t, records)
	require.Len(t, errs, 1)
}

func TestMobileMoneyParser(t *testing.T) {
	input := `Confirmed. You have received $250.00 from ACME LTD on 15/01/2024 Ref: MM48213
Sent $12.50 to JOHN MOYO on 16/01/2024 Ref: MM48290

# comment line
this line is noise
`
	records, errs := NewMobileMoneyParser().Parse(strings.NewReader(input))

	require.Len(t, records, 2)
	assert.Len(t, errs, 1, "the noise line should be rejected")

	assert.Equal(t, "250.00", records[0].AmountText)
	assert.Equal(t, "ACME LTD", records[0].Description)
	assert.Equal(t, "15/01/2024", records[0].DateText)
	assert.Equal(t, "MM48213", records[0].Reference)

	// Outgoing payments carry a negative amount.
	assert.Equal(t, "-12.50", records[1].AmountText)
	assert.Equal(t, "JOHN MOYO", records[1].Description)
}

func TestTextTransferParser(t *testing.T) {
	input := `# interbank transfers
2024-01-15 | TRN-4451 | 250.00 | salary transfer
2024-01-16 | TRN-4452 | 1000.00 | supplier settlement

bad line without pipes
`
	records, errs := NewTextTransferParser().Parse(strings.NewReader(input))

	require.Len(t, records, 2)
	assert.Len(t, errs, 1)

	assert.Equal(t, "2024-01-15", records[0].DateText)
	assert.Equal(t, "TRN-4451", records[0].Reference)
	assert.Equal(t, "250.00", records[0].AmountText)
	assert.Equal(t, "salary transfer", records[0].Description)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"", FormatAuto},
		{"auto", FormatAuto},
		{"bank", FormatBankCSV},
		{"CSV", FormatBankCSV},
		{"mobilemoney", FormatMobileMoney},
		{"transfer", FormatTextTransfer},
	}

	for _, tt := range tests {
		format, err := ParseFormat(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, format)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected Format
	}{
		{"bank csv", "Date,Amount,Reference\n2024-01-15,1.00,R1\n", FormatBankCSV},
		{"transfer log", "# log\n2024-01-15 | R1 | 1.00 | desc\n", FormatTextTransfer},
		{"mobile money", "Received $5.00 from A B on 15/01/2024 Ref: M1\n", FormatMobileMoney},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := DetectFormat("input.txt", []byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}

	_, err := DetectFormat("input.txt", []byte("completely unrecognizable\n"))
	assert.Error(t, err)
}

func TestParseFileEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.csv")
	content := `Date,Amount,Reference,Description
2024-01-15,$100.50,inv 001,Payment to ABC Corp
2024-01-15,$100.50,inv 001,Payment to ABC Corp
2024-01-16,oops,INV-002,bad amount
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	transactions, stats, rowErrors, err := ParseFile(path, FormatAuto, models.SourceBank, nil)
	require.NoError(t, err)

	require.Len(t, transactions, 1)
	tx := transactions[0]
	assert.Equal(t, "INV001", tx.Reference)
	assert.Equal(t, "payment to abc corp", tx.Description)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("100.50")))
	assert.Equal(t, models.SourceBank, tx.Source)

	assert.Equal(t, FormatBankCSV, stats.Format)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Len(t, rowErrors, 1)
}

func TestParseFileNotFound(t *testing.T) {
	_, _, _, err := ParseFile("/nonexistent/file.csv", FormatAuto, models.SourceBank, nil)
	assert.Error(t, err)
}
