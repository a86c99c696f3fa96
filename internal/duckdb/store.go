// Package duckdb persists scoring runs in a DuckDB database: one row per
// (cluster, cell type) pair with its score, empirical p-value and null
// distribution summary, plus one row per cluster assignment. The store is
// append-only and queryable across runs.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for persisting scoring results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS scorect_scores (
		run_id VARCHAR,
		cluster INTEGER,
		cell_type VARCHAR,
		score DOUBLE,
		pvalue DOUBLE,
		null_mean DOUBLE,
		null_sd DOUBLE,
		PRIMARY KEY (run_id, cluster, cell_type)
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS scorect_assignments (
		run_id VARCHAR,
		cluster INTEGER,
		cell_type VARCHAR,
		pval_threshold DOUBLE,
		ambiguous BOOLEAN,
		PRIMARY KEY (run_id, cluster)
	)`)
	return err
}
