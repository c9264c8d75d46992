// Package models defines the canonical transaction record shared by every
// pipeline stage, plus the candidate-pair and verdict types produced by a
// reconciliation run.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceTag identifies which collection a transaction came from.
type SourceTag string

const (
	// SourceBank marks records from the bank side (statements, mobile-money
	// exports, transfer logs).
	SourceBank SourceTag = "bank"
	// SourceTarget marks records from the reconciliation target side
	// (invoices, expected payment records).
	SourceTarget SourceTag = "target"
)

// String returns the string representation of SourceTag.
func (s SourceTag) String() string {
	return string(s)
}

// IsValid checks if the source tag is one of the known collections.
func (s SourceTag) IsValid() bool {
	return s == SourceBank || s == SourceTarget
}

// Transaction is the canonical, post-normalization transaction record.
// Instances are created once by the normalization layer and are immutable
// inputs to the matching engine.
type Transaction struct {
	ID          string          `json:"id" csv:"id"`
	Reference   string          `json:"reference" csv:"reference"`
	Amount      decimal.Decimal `json:"amount" csv:"amount"`
	Date        time.Time       `json:"date" csv:"date"`
	Description string          `json:"description" csv:"description"`
	Source      SourceTag       `json:"source_tag" csv:"source_tag"`
}

// NewTransaction creates a new Transaction instance.
func NewTransaction(id, reference string, amount decimal.Decimal, date time.Time, description string, source SourceTag) *Transaction {
	return &Transaction{
		ID:          id,
		Reference:   reference,
		Amount:      amount,
		Date:        date,
		Description: description,
		Source:      source,
	}
}

// Validate checks the invariants the engine relies on: id and date are always
// present; reference and description may be empty but the record itself must
// be addressable. The amount field is a value type and is therefore always
// present; callers that parse amounts report failures at parse time.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction id cannot be empty")
	}

	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	if !t.Source.IsValid() {
		return fmt.Errorf("invalid source tag: %s", t.Source)
	}

	return nil
}

// String returns a string representation of the Transaction.
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Ref: %s, Amount: %s, Date: %s, Source: %s}",
		t.ID, t.Reference, t.Amount.String(), t.Date.Format("2006-01-02"), t.Source)
}

// NormalizedReference returns the reference in lookup form: upper-cased with
// all whitespace removed. Empty references normalize to the empty string and
// are never eligible lookup keys.
func (t *Transaction) NormalizedReference() string {
	return NormalizeReference(t.Reference)
}

// DateKey returns the calendar-date key used for date bucketing.
func (t *Transaction) DateKey() string {
	return t.Date.Format("2006-01-02")
}

// AbsAmount returns the absolute value of the transaction amount.
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// Equals compares two Transaction instances for equality.
func (t *Transaction) Equals(other *Transaction) bool {
	if other == nil {
		return false
	}

	return t.ID == other.ID &&
		t.Reference == other.Reference &&
		t.Amount.Equal(other.Amount) &&
		t.DateKey() == other.DateKey() &&
		t.Description == other.Description &&
		t.Source == other.Source
}

// MarshalJSON renders the amount as a string and the date as a calendar date.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Amount: t.Amount.String(),
		Date:   t.Date.Format("2006-01-02"),
		Alias:  (*Alias)(t),
	})
}

// UnmarshalJSON parses the string amount and calendar date produced by
// MarshalJSON.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type Alias Transaction
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	t.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	t.Date, err = time.Parse("2006-01-02", aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	return nil
}

// NormalizeReference upper-cases a reference and removes all whitespace so
// that "ec 001" and "EC001" share a lookup key.
func NormalizeReference(ref string) string {
	fields := strings.Fields(strings.ToUpper(ref))
	return strings.Join(fields, "")
}

// NormalizeDescription lower-cases a description and collapses runs of
// whitespace into single spaces.
func NormalizeDescription(desc string) string {
	fields := strings.Fields(strings.ToLower(desc))
	return strings.Join(fields, " ")
}

// CandidatePair references one transaction from each collection together
// with the sub-scores computed by the scoring stage. All sub-scores and the
// derived confidence lie in [0,1].
type CandidatePair struct {
	A *Transaction `json:"a"`
	B *Transaction `json:"b"`

	AmountScore    float64 `json:"amount_score"`
	TextScore      float64 `json:"text_score"`
	DateScore      float64 `json:"date_score"`
	ReferenceBonus float64 `json:"reference_bonus"`
	Confidence     float64 `json:"confidence"`

	// AmountDiff and DateDiffDays support the classifier's tie-breaks and
	// make review output self-explanatory.
	AmountDiff   decimal.Decimal `json:"amount_diff"`
	DateDiffDays int             `json:"date_diff_days"`

	// BOrdinal is the B-transaction's position in its input collection,
	// used as the final deterministic tie-break.
	BOrdinal int `json:"-"`
}

// ExactReference reports whether the pair's normalized references are
// non-empty and identical.
func (p *CandidatePair) ExactReference() bool {
	refA := p.A.NormalizedReference()
	return refA != "" && refA == p.B.NormalizedReference()
}

// Key returns the pair identity used by the reviewed-decision store.
func (p *CandidatePair) Key() string {
	return PairKey(p.A.ID, p.B.ID)
}

// PairKey builds the stable pair identity for an (A, B) transaction pairing.
func PairKey(aID, bID string) string {
	return aID + "|" + bID
}

// VerdictKind is the terminal disposition of a transaction or pair.
type VerdictKind string

const (
	VerdictAutoMatched  VerdictKind = "auto_matched"
	VerdictManualReview VerdictKind = "manual_review"
	VerdictUnmatched    VerdictKind = "unmatched"
)

// String returns the string representation of VerdictKind.
func (k VerdictKind) String() string {
	return string(k)
}

// MatchVerdict is one terminal outcome of a reconciliation run. AutoMatched
// and ManualReview verdicts carry a pair; Unmatched verdicts carry the lone
// transaction. Every input transaction appears in exactly one verdict.
type MatchVerdict struct {
	Kind VerdictKind `json:"kind"`

	// Pair is set for auto_matched and manual_review verdicts.
	Pair *CandidatePair `json:"pair,omitempty"`

	// Transaction is set for unmatched verdicts.
	Transaction *Transaction `json:"transaction,omitempty"`

	// MatchedBy records which stage produced the verdict
	// ("exact_reference" or "fuzzy").
	MatchedBy string `json:"matched_by,omitempty"`
}

// Validate checks the verdict's structural invariant.
func (v *MatchVerdict) Validate() error {
	switch v.Kind {
	case VerdictAutoMatched, VerdictManualReview:
		if v.Pair == nil {
			return fmt.Errorf("%s verdict requires a pair", v.Kind)
		}
	case VerdictUnmatched:
		if v.Transaction == nil {
			return fmt.Errorf("unmatched verdict requires a transaction")
		}
	default:
		return fmt.Errorf("unknown verdict kind: %s", v.Kind)
	}
	return nil
}

// SkippedRecord reports an input transaction that failed validation and was
// excluded from matching rather than silently dropped.
type SkippedRecord struct {
	Transaction *Transaction `json:"transaction"`
	Reason      string       `json:"reason"`
}
