package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inodb/vibe-ptm/internal/exon"
)

// Run describes one preprocessing run.
type Run struct {
	ID        string
	StartedAt time.Time
	Format    string
	Input     string
	FASTA     FileFingerprint
	Isoforms  int
	// Exon fields are zero when no variable exon was detected.
	ExonStart  int
	ExonEnd    int
	ExonLength int
	Exon1      string
	Exon2      string
}

// NewRun creates a run record with a fresh identifier.
func NewRun(format, input string, fasta FileFingerprint, isoforms int, region *exon.Region) Run {
	r := Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Format:    format,
		Input:     input,
		FASTA:     fasta,
		Isoforms:  isoforms,
	}
	if region != nil {
		r.ExonStart = region.Start
		r.ExonEnd = region.End
		r.ExonLength = region.Length
		r.Exon1 = region.Exon1
		r.Exon2 = region.Exon2
	}
	return r
}

// RecordRun inserts a run record.
func (s *Store) RecordRun(r Run) error {
	_, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt, r.Format, r.Input,
		r.FASTA.Path, r.FASTA.Size, r.FASTA.ModTime.UTC(),
		int64(r.Isoforms), int64(r.ExonStart), int64(r.ExonEnd), int64(r.ExonLength),
		r.Exon1, r.Exon2)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// GetRun returns a run by identifier, or nil if it does not exist.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT run_id, started_at, format, input,
		fasta, fasta_size, fasta_modtime, isoforms,
		exon_start, exon_end, exon_length, exon1, exon2
		FROM runs WHERE run_id=?`, id)

	var r Run
	var isoforms, start, end, length int64
	err := row.Scan(&r.ID, &r.StartedAt, &r.Format, &r.Input,
		&r.FASTA.Path, &r.FASTA.Size, &r.FASTA.ModTime, &isoforms,
		&start, &end, &length, &r.Exon1, &r.Exon2)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	r.Isoforms = int(isoforms)
	r.ExonStart, r.ExonEnd, r.ExonLength = int(start), int(end), int(length)
	return &r, nil
}

// LatestRun returns the most recently started run, or nil if there is none.
func (s *Store) LatestRun() (*Run, error) {
	var id string
	err := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	return s.GetRun(id)
}
