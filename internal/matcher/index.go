package matcher

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"payment-reconciliation-engine/internal/models"
)

// indexEntry pins a B transaction to its input ordinal so candidate lists
// can be restored to input order after a range query.
type indexEntry struct {
	tx      *models.Transaction
	ordinal int
}

// CandidateIndex answers amount-window range queries over the B collection
// in O(log n + k) using a slice sorted by amount.
type CandidateIndex struct {
	entries []indexEntry
	config  *ReconciliationConfig
}

// NewCandidateIndex builds the index over the B-side transactions.
func NewCandidateIndex(transactionsB []*models.Transaction, config *ReconciliationConfig) *CandidateIndex {
	entries := make([]indexEntry, 0, len(transactionsB))
	for i, tx := range transactionsB {
		entries = append(entries, indexEntry{tx: tx, ordinal: i})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].tx.Amount.LessThan(entries[j].tx.Amount)
	})

	return &CandidateIndex{entries: entries, config: config}
}

// Size returns the number of indexed transactions.
func (idx *CandidateIndex) Size() int {
	return len(idx.entries)
}

// Candidates returns every B transaction inside both the amount window and
// the date window of txA, ordered by B input ordinal. A transaction passes
// only when both windows admit it.
func (idx *CandidateIndex) Candidates(txA *models.Transaction) []indexEntry {
	window := idx.config.AmountWindow(txA.Amount)
	minAmount := txA.Amount.Sub(window)
	maxAmount := txA.Amount.Add(window)

	start := sort.Search(len(idx.entries), func(i int) bool {
		return !idx.entries[i].tx.Amount.LessThan(minAmount)
	})
	end := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].tx.Amount.GreaterThan(maxAmount)
	})

	var candidates []indexEntry
	for _, entry := range idx.entries[start:end] {
		if withinDateWindow(txA, entry.tx, idx.config.DateWindowDays) {
			candidates = append(candidates, entry)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ordinal < candidates[j].ordinal
	})

	return candidates
}

// withinDateWindow reports whether two transactions fall within the
// configured calendar-day window of each other.
func withinDateWindow(a, b *models.Transaction, windowDays int) bool {
	return calendarDayDistance(a, b) <= windowDays
}

// calendarDayDistance returns the absolute distance in calendar days between
// two transactions, ignoring time of day.
func calendarDayDistance(a, b *models.Transaction) int {
	dayA := time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, time.UTC)
	dayB := time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(dayA.Sub(dayB).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// amountDistance returns |amountA - amountB|.
func amountDistance(a, b *models.Transaction) decimal.Decimal {
	return a.Amount.Sub(b.Amount).Abs()
}
