// Package history records unblock runs in a local sqlite database, so
// repeat offenders and stubborn letters can be spotted across runs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one invocation of the tool.
type Run struct {
	ID        int64
	DryRun    bool
	Letters   string
	Unblocked int
	Failed    int // letters that errored out
	StartedAt time.Time
	CreatedAt time.Time
}

// LetterOutcome is the per-letter detail of a run.
type LetterOutcome struct {
	ID        int64
	RunID     int64
	Letter    string
	Blocked   int
	Targets   int
	Unblocked int
	Escalated bool
	Retried   bool
	Error     string
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dry_run INTEGER NOT NULL,
		letters TEXT NOT NULL,
		unblocked INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS run_letters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		letter TEXT NOT NULL,
		blocked INTEGER NOT NULL DEFAULT 0,
		targets INTEGER NOT NULL DEFAULT 0,
		unblocked INTEGER NOT NULL DEFAULT 0,
		escalated INTEGER NOT NULL DEFAULT 0,
		retried INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_rl_run_id ON run_letters(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// AddRun inserts a run header and fills in its ID.
func (s *Store) AddRun(run *Run) error {
	result, err := s.db.Exec(
		`INSERT INTO runs (dry_run, letters, unblocked, failed, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.DryRun, run.Letters, run.Unblocked, run.Failed, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// FinishRun stores the final totals of a run.
func (s *Store) FinishRun(runID int64, unblocked, failed int) error {
	_, err := s.db.Exec(`UPDATE runs SET unblocked = ?, failed = ? WHERE id = ?`, unblocked, failed, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// AddLetter records one letter's outcome for a run.
func (s *Store) AddLetter(o *LetterOutcome) error {
	result, err := s.db.Exec(
		`INSERT INTO run_letters (run_id, letter, blocked, targets, unblocked, escalated, retried, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Letter, o.Blocked, o.Targets, o.Unblocked, o.Escalated, o.Retried, o.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert letter outcome: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	o.ID = id
	return nil
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, dry_run, letters, unblocked, failed, started_at, created_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.DryRun, &r.Letters, &r.Unblocked, &r.Failed, &r.StartedAt, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = createdAt.Time
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LettersForRun returns a run's per-letter outcomes in insertion order.
func (s *Store) LettersForRun(runID int64) ([]LetterOutcome, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, letter, blocked, targets, unblocked, escalated, retried, error
		 FROM run_letters WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query letter outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []LetterOutcome
	for rows.Next() {
		var o LetterOutcome
		var errStr sql.NullString
		if err := rows.Scan(&o.ID, &o.RunID, &o.Letter, &o.Blocked, &o.Targets, &o.Unblocked, &o.Escalated, &o.Retried, &errStr); err != nil {
			return nil, err
		}
		o.Error = errStr.String
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// TotalUnblocked sums live-run unblocks across all recorded history.
func (s *Store) TotalUnblocked() (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(unblocked) FROM runs WHERE dry_run = 0`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum unblocked: %w", err)
	}
	return int(total.Int64), nil
}
