// Package history persists run outcomes to a local SQLite database so
// successive runs can be compared.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ctestgen/internal/regen"
)

// Store manages the run-history database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// RunRecord is one whole run's summary row.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      regen.Snapshot
}

// FileRecord is one file's final report within a run.
type FileRecord struct {
	RunID    string
	File     string
	Quality  string
	Compiles bool
	Realist  bool
	Issues   []string
	Attempts int
	State    string
}

// NewStore creates or opens the history database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		attempts_issued INTEGER NOT NULL,
		successful_regenerations INTEGER NOT NULL,
		files_accepted INTEGER NOT NULL,
		files_failed INTEGER NOT NULL,
		files_below_threshold INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS file_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		file TEXT NOT NULL,
		quality TEXT NOT NULL,
		compiles INTEGER NOT NULL,
		realistic INTEGER NOT NULL,
		issues_json TEXT,
		attempts INTEGER NOT NULL,
		state TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_file_reports_run ON file_reports(run_id);
	CREATE INDEX IF NOT EXISTS idx_file_reports_file ON file_reports(file);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun records the run summary and every file's final report in one
// transaction.
func (s *Store) SaveRun(run RunRecord, results []regen.FileResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, attempts_issued,
			successful_regenerations, files_accepted, files_failed, files_below_threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt,
		run.Stats.AttemptsIssued, run.Stats.SuccessfulRegenerations,
		run.Stats.FilesAccepted, run.Stats.FilesFailed, run.Stats.FilesBelowThreshold)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO file_reports (run_id, file, quality, compiles, realistic,
			issues_json, attempts, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		issues, err := json.Marshal(res.Report.Issues)
		if err != nil {
			return fmt.Errorf("failed to marshal issues: %w", err)
		}
		_, err = stmt.Exec(run.ID, res.File, res.Report.Quality.String(),
			res.Report.Compiles, res.Report.Realistic,
			string(issues), res.Attempts, res.State.String())
		if err != nil {
			return fmt.Errorf("failed to insert file report: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, attempts_issued,
			successful_regenerations, files_accepted, files_failed, files_below_threshold
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt,
			&r.Stats.AttemptsIssued, &r.Stats.SuccessfulRegenerations,
			&r.Stats.FilesAccepted, &r.Stats.FilesFailed,
			&r.Stats.FilesBelowThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FileHistory returns the reports recorded for one file across runs,
// newest first.
func (s *Store) FileHistory(file string, limit int) ([]FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT run_id, file, quality, compiles, realistic, issues_json, attempts, state
		FROM file_reports WHERE file = ? ORDER BY id DESC LIMIT ?`, file, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query file reports: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var rec FileRecord
		var issuesJSON sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.File, &rec.Quality, &rec.Compiles,
			&rec.Realist, &issuesJSON, &rec.Attempts, &rec.State); err != nil {
			return nil, fmt.Errorf("failed to scan file report: %w", err)
		}
		if issuesJSON.Valid && issuesJSON.String != "" {
			if err := json.Unmarshal([]byte(issuesJSON.String), &rec.Issues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
