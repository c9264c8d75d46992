// Package reviewstore persists operator decisions on manual-review pairs.
// Pairs already confirmed or rejected by a reviewer are excluded from later
// runs so re-reconciling the same files does not resurface settled work.
package reviewstore

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/pkg/errors"
)

// Decision is an operator's ruling on a manual-review pair.
type Decision string

const (
	DecisionConfirmed Decision = "confirmed"
	DecisionRejected  Decision = "rejected"
)

// IsValid checks if the decision is a known value.
func (d Decision) IsValid() bool {
	return d == DecisionConfirmed || d == DecisionRejected
}

// ReviewedPair is one persisted decision, keyed by the identity of the two
// transactions involved.
type ReviewedPair struct {
	AID        string    `json:"a_id"`
	BID        string    `json:"b_id"`
	Decision   Decision  `json:"decision"`
	Confidence float64   `json:"confidence"`
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// Store provides access to reviewed decisions.
type Store interface {
	Save(pair *ReviewedPair) error
	Get(aID, bID string) (*ReviewedPair, error)
	ReviewedKeys() (map[string]Decision, error)
	Close() error
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS reviewed_pairs (
	a_id        TEXT NOT NULL,
	b_id        TEXT NOT NULL,
	decision    TEXT NOT NULL,
	confidence  REAL NOT NULL,
	reviewed_by TEXT NOT NULL DEFAULT '',
	reviewed_at TIMESTAMP NOT NULL,
	PRIMARY KEY (a_id, b_id)
);
`

// NewSQLiteStore opens (or creates) the review database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStoreUnavailable, "open", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeStoreUnavailable, "configure", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeStoreUnavailable, "migrate", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts a reviewed decision.
func (s *SQLiteStore) Save(pair *ReviewedPair) error {
	if !pair.Decision.IsValid() {
		return errors.StorageError(errors.CodeStoreQueryFailed, "save", nil).
			WithContext("decision", string(pair.Decision))
	}
	if pair.ReviewedAt.IsZero() {
		pair.ReviewedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO reviewed_pairs
			(a_id, b_id, decision, confidence, reviewed_by, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pair.AID, pair.BID, string(pair.Decision), pair.Confidence, pair.ReviewedBy, pair.ReviewedAt)
	if err != nil {
		return errors.StorageError(errors.CodeStoreQueryFailed, "save", err).
			WithContext("pair", models.PairKey(pair.AID, pair.BID))
	}
	return nil
}

// Get returns the decision for a pair, or nil when none is recorded.
func (s *SQLiteStore) Get(aID, bID string) (*ReviewedPair, error) {
	row := s.db.QueryRow(`
		SELECT a_id, b_id, decision, confidence, reviewed_by, reviewed_at
		FROM reviewed_pairs WHERE a_id = ? AND b_id = ?`, aID, bID)

	pair := &ReviewedPair{}
	var decision string
	err := row.Scan(&pair.AID, &pair.BID, &decision, &pair.Confidence, &pair.ReviewedBy, &pair.ReviewedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StorageError(errors.CodeStoreQueryFailed, "get", err)
	}

	pair.Decision = Decision(decision)
	return pair, nil
}

// ReviewedKeys returns every recorded pair key with its decision. The
// reconciliation service uses this map to pin confirmed pairs and suppress
// rejected ones.
func (s *SQLiteStore) ReviewedKeys() (map[string]Decision, error) {
	rows, err := s.db.Query(`SELECT a_id, b_id, decision FROM reviewed_pairs`)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStoreQueryFailed, "list", err)
	}
	defer rows.Close()

	keys := make(map[string]Decision)
	for rows.Next() {
		var aID, bID, decision string
		if err := rows.Scan(&aID, &bID, &decision); err != nil {
			return nil, errors.StorageError(errors.CodeStoreQueryFailed, "list", err)
		}
		keys[models.PairKey(aID, bID)] = Decision(decision)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeStoreQueryFailed, "list", err)
	}

	return keys, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
