// Package storage persists the workflow's aggregates in SQLite. It owns the
// guarantees the engine relies on: the (paper, reviewer, cycle) uniqueness
// constraint, optimistic row versions on papers, and transactions that
// commit cross-aggregate writes together.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT,
			research_area TEXT NOT NULL,
			methodology TEXT,
			status TEXT NOT NULL,
			version INTEGER NOT NULL,
			parent_paper_id TEXT,
			superseded_by_id TEXT,
			authors_json TEXT NOT NULL,
			corresponding_author_id TEXT,
			review_cycle INTEGER NOT NULL,
			change_log_json TEXT,
			submission_json TEXT,
			submission_date TEXT,
			views INTEGER NOT NULL DEFAULT 0,
			downloads INTEGER NOT NULL DEFAULT 0,
			citation_count INTEGER NOT NULL DEFAULT 0,
			created_by TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			row_version INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status);
		CREATE INDEX IF NOT EXISTS idx_papers_parent ON papers(parent_paper_id)
			WHERE parent_paper_id IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_papers_created_by ON papers(created_by);

		-- One row per reviewer per review cycle of a paper. The partial
		-- unique index is the assignment-race guard: the second concurrent
		-- assign loses. Declined rows fall out of the index, so the slot
		-- reopens for reassignment within the same cycle.
		CREATE TABLE IF NOT EXISTS assignments (
			paper_id TEXT NOT NULL REFERENCES papers(id),
			reviewer_id TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			status TEXT NOT NULL,
			assigned_date TEXT NOT NULL,
			due_date TEXT NOT NULL,
			is_blind INTEGER NOT NULL DEFAULT 0
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_open
			ON assignments(paper_id, reviewer_id, cycle)
			WHERE status != 'declined';
		CREATE INDEX IF NOT EXISTS idx_assignments_reviewer ON assignments(reviewer_id, status);

		CREATE TABLE IF NOT EXISTS reviews (
			id TEXT PRIMARY KEY,
			paper_id TEXT NOT NULL REFERENCES papers(id),
			reviewer_id TEXT NOT NULL,
			assigned_by_id TEXT,
			cycle INTEGER NOT NULL,
			is_blind INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			assignment_date TEXT NOT NULL,
			due_date TEXT NOT NULL,
			completed_date TEXT,
			withdraw_reason TEXT,
			rating_json TEXT,
			review_text TEXT,
			recommendation_json TEXT,
			average_rating REAL,
			comments_json TEXT
		);

		-- At most one non-withdrawn review per reviewer per cycle. Withdrawn
		-- reviews stay for provenance without blocking reassignment.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_open
			ON reviews(paper_id, reviewer_id, cycle)
			WHERE status != 'withdrawn';
		CREATE INDEX IF NOT EXISTS idx_reviews_reviewer ON reviews(reviewer_id, status);
		CREATE INDEX IF NOT EXISTS idx_reviews_paper ON reviews(paper_id, cycle);
		-- Overdue scans: open reviews ordered by due date.
		CREATE INDEX IF NOT EXISTS idx_reviews_due ON reviews(status, due_date);

		CREATE TABLE IF NOT EXISTS reviewers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			willing_to_review INTEGER NOT NULL DEFAULT 1,
			review_areas_json TEXT NOT NULL,
			maximum_reviews_per_year INTEGER NOT NULL,
			expertise_json TEXT,
			verified INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS citations (
			id TEXT PRIMARY KEY,
			doi TEXT,
			arxiv_id TEXT,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			authors_json TEXT,
			publication_year INTEGER,
			total_citations INTEGER NOT NULL DEFAULT 0,
			is_verified INTEGER NOT NULL DEFAULT 0,
			has_full_text INTEGER NOT NULL DEFAULT 0,
			quality_score REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		-- Duplicate-detection gates: DOI and arXiv id, when present, are
		-- unique across all citations.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_citations_doi ON citations(doi)
			WHERE doi IS NOT NULL AND doi != '';
		CREATE UNIQUE INDEX IF NOT EXISTS idx_citations_arxiv ON citations(arxiv_id)
			WHERE arxiv_id IS NOT NULL AND arxiv_id != '';

		CREATE TABLE IF NOT EXISTS citation_links (
			citation_id TEXT NOT NULL REFERENCES citations(id),
			paper_id TEXT NOT NULL REFERENCES papers(id),
			context TEXT,
			relevance TEXT,
			created_at TEXT NOT NULL,
			PRIMARY KEY (citation_id, paper_id)
		);

		CREATE INDEX IF NOT EXISTS idx_citation_links_paper ON citation_links(paper_id);
	`

	_, err := db.Exec(schema)
	return err
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error.
func (d *DB) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx so store methods can run
// standalone or inside a transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure on the named index or column set.
func isUniqueViolation(err error, hint string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, hint)
}

// encodeTime formats a timestamp for storage; zero times store as NULL.
func encodeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// decodeTime parses a stored timestamp, returning the zero time for NULL.
func decodeTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s.String)
}
