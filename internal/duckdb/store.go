// Package duckdb stores normalized events and run metadata in DuckDB, and
// caches alignments on disk.
// Events are appended per run and can be queried per sample or label.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for the event store.
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
			return nil, fmt.Errorf("create database directory: %w", err)
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

// Path returns the database path, empty for an in-memory database.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		started_at TIMESTAMP,
		format VARCHAR,
		input VARCHAR,
		fasta VARCHAR,
		fasta_size BIGINT,
		fasta_modtime TIMESTAMP,
		isoforms BIGINT,
		exon_start BIGINT,
		exon_end BIGINT,
		exon_length BIGINT,
		exon1 VARCHAR,
		exon2 VARCHAR
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS events (
		run_id VARCHAR,
		sample VARCHAR,
		kind VARCHAR,
		type VARCHAR,
		amino_acid VARCHAR,
		position BIGINT,
		tag VARCHAR,
		label VARCHAR,
		PRIMARY KEY (run_id, sample, kind, label)
	)`)
	return err
}
