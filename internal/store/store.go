// Package store persists contract-test run history in a SQLite database
// so `pack validate` can compare a fresh run against the last-recorded
// one per case and flag regressions. It uses the pure-Go
// modernc.org/sqlite driver; the compiler core has no CGO surface.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/icl-lang/iclc/core/registry"
)

// Store records contract-test run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite database at path and ensures
// its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS contract_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pack_id TEXT NOT NULL,
	case_name TEXT NOT NULL,
	run_id TEXT NOT NULL,
	pass INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	stable_gate INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contract_runs_pack_case
	ON contract_runs(pack_id, case_name, recorded_at);
`)
	if err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// RecordReport persists one registry.ContractReport under the given
// timestamp (callers pass the wall-clock time explicitly, since the
// compiler core itself never reads the clock).
func (s *Store) RecordReport(report registry.ContractReport, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO contract_runs
		(pack_id, case_name, run_id, pass, error, stable_gate, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record: %w", err)
	}
	defer stmt.Close()

	gate := 0
	if report.StableGate {
		gate = 1
	}
	for _, res := range report.Results {
		pass := 0
		if res.Pass {
			pass = 1
		}
		if _, err := stmt.Exec(report.PackID, res.Case, res.RunID, pass, res.Error, gate, at.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("record case %s: %w", res.Case, err)
		}
	}
	return tx.Commit()
}

// CaseHistory is one pack/case's most recent recorded outcome, used to
// detect regressions between contract-test invocations.
type CaseHistory struct {
	PackID     string
	Case       string
	Pass       bool
	RecordedAt string
}

// LastRun returns the most recently recorded outcome of each case for
// packID: one row per case_name, ordered by case name.
func (s *Store) LastRun(packID string) ([]CaseHistory, error) {
	rows, err := s.db.Query(`
SELECT pack_id, case_name, pass, recorded_at FROM contract_runs
WHERE pack_id = ?
AND id IN (
	SELECT MAX(id) FROM contract_runs WHERE pack_id = ? GROUP BY case_name
)
ORDER BY case_name`, packID, packID)
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	defer rows.Close()

	var out []CaseHistory
	for rows.Next() {
		var h CaseHistory
		var pass int
		if err := rows.Scan(&h.PackID, &h.Case, &pass, &h.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan last run: %w", err)
		}
		h.Pass = pass == 1
		out = append(out, h)
	}
	return out, rows.Err()
}

// Regressions compares a fresh report against the previously recorded
// outcome for each case and returns the case names that passed last time
// but fail now.
func (s *Store) Regressions(report registry.ContractReport) ([]string, error) {
	previous, err := s.LastRun(report.PackID)
	if err != nil {
		return nil, err
	}
	lastPass := make(map[string]bool, len(previous))
	for _, h := range previous {
		lastPass[h.Case] = h.Pass
	}

	var regressed []string
	for _, res := range report.Results {
		if !res.Pass && lastPass[res.Case] {
			regressed = append(regressed, res.Case)
		}
	}
	return regressed, nil
}
