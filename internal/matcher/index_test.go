package matcher

import (
	"testing"

	"payment-reconciliation-engine/internal/models"
)

func TestCandidateIndexAmountWindow(t *testing.T) {
	config := DefaultConfig()
	transactionsB := []*models.Transaction{
		makeTx("b1", "", 50.00, "2024-01-15", "", models.SourceTarget),
		makeTx("b2", "", 100.00, "2024-01-15", "", models.SourceTarget),
		makeTx("b3", "", 101.50, "2024-01-15", "", models.SourceTarget),
		makeTx("b4", "", 150.00, "2024-01-15", "", models.SourceTarget),
	}
	index := NewCandidateIndex(transactionsB, config)

	txA := makeTx("a1", "", 100.00, "2024-01-15", "", models.SourceBank)
	candidates := index.Candidates(txA)

	// Window is 2% of 100 = 2.00, so only 100.00 and 101.50 qualify.
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates in amount window, got %d", len(candidates))
	}
	if candidates[0].tx.ID != "b2" || candidates[1].tx.ID != "b3" {
		t.Errorf("Expected candidates b2, b3 in input order, got %s, %s",
			candidates[0].tx.ID, candidates[1].tx.ID)
	}
}

func TestCandidateIndexDateWindow(t *testing.T) {
	config := DefaultConfig()
	transactionsB := []*models.Transaction{
		makeTx("b1", "", 100.00, "2024-01-15", "", models.SourceTarget),
		makeTx("b2", "", 100.00, "2024-01-18", "", models.SourceTarget),
		makeTx("b3", "", 100.00, "2024-01-19", "", models.SourceTarget),
	}
	index := NewCandidateIndex(transactionsB, config)

	txA := makeTx("a1", "", 100.00, "2024-01-15", "", models.SourceBank)
	candidates := index.Candidates(txA)

	// Window is 3 days: Jan 15 and Jan 18 qualify, Jan 19 does not.
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates in date window, got %d", len(candidates))
	}
	for _, c := range candidates {
		if c.tx.ID == "b3" {
			t.Error("Expected b3 outside the date window to be excluded")
		}
	}
}

func TestCandidateIndexAbsoluteFloorForSmallAmounts(t *testing.T) {
	config := DefaultConfig()
	transactionsB := []*models.Transaction{
		makeTx("b1", "", 0.11, "2024-01-15", "", models.SourceTarget),
	}
	index := NewCandidateIndex(transactionsB, config)

	// 2% of 0.10 is only 0.002; the 0.01 floor keeps 0.11 reachable.
	txA := makeTx("a1", "", 0.10, "2024-01-15", "", models.SourceBank)
	candidates := index.Candidates(txA)

	if len(candidates) != 1 {
		t.Errorf("Expected absolute floor to admit 0.11 as candidate for 0.10, got %d candidates", len(candidates))
	}
}

func TestCandidateIndexOrdinalOrdering(t *testing.T) {
	config := DefaultConfig()
	// Input order differs from amount order.
	transactionsB := []*models.Transaction{
		makeTx("b1", "", 100.50, "2024-01-15", "", models.SourceTarget),
		makeTx("b2", "", 99.50, "2024-01-15", "", models.SourceTarget),
		makeTx("b3", "", 100.00, "2024-01-15", "", models.SourceTarget),
	}
	index := NewCandidateIndex(transactionsB, config)

	txA := makeTx("a1", "", 100.00, "2024-01-15", "", models.SourceBank)
	candidates := index.Candidates(txA)

	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(candidates))
	}
	for i, want := range []string{"b1", "b2", "b3"} {
		if candidates[i].tx.ID != want {
			t.Errorf("Expected candidate %d to be %s (input order), got %s", i, want, candidates[i].tx.ID)
		}
	}
}

func TestCandidateIndexEmpty(t *testing.T) {
	index := NewCandidateIndex(nil, DefaultConfig())

	if index.Size() != 0 {
		t.Errorf("Expected empty index, got size %d", index.Size())
	}

	txA := makeTx("a1", "", 100.00, "2024-01-15", "", models.SourceBank)
	if candidates := index.Candidates(txA); len(candidates) != 0 {
		t.Errorf("Expected no candidates from empty index, got %d", len(candidates))
	}
}
