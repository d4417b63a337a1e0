package duckdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inodb/vibe-ptm/internal/fasta"
)

// AlignmentCache keeps the aligned FASTA of a run next to its results so
// that later runs over the same input can skip the aligner:
//
//	{dir}/aligned.fasta       (aligned isoforms)
//	{dir}/aligned.fasta.meta  (fingerprint of the raw FASTA)
type AlignmentCache struct {
	dir string
}

// NewAlignmentCache creates an alignment cache for the given directory.
func NewAlignmentCache(dir string) *AlignmentCache {
	return &AlignmentCache{dir: dir}
}

// Path returns the aligned FASTA path.
func (ac *AlignmentCache) Path() string {
	return filepath.Join(ac.dir, "aligned.fasta")
}

func (ac *AlignmentCache) metaPath() string {
	return ac.Path() + ".meta"
}

// Valid checks whether the cached alignment was computed from the given raw
// FASTA file.
func (ac *AlignmentCache) Valid(raw FileFingerprint) bool {
	meta, err := ac.readMeta()
	if err != nil {
		return false
	}

	for _, line := range raw.meta("fasta") {
		k, v, _ := strings.Cut(line, "=")
		if meta[k] != v {
			return false
		}
	}

	if _, err := os.Stat(ac.Path()); err != nil {
		return false
	}
	return true
}

// Load reads the cached alignment.
func (ac *AlignmentCache) Load() ([]fasta.Record, error) {
	records, err := fasta.Load(ac.Path())
	if err != nil {
		return nil, fmt.Errorf("load alignment cache: %w", err)
	}
	return records, nil
}

// Write stores an alignment computed from the given raw FASTA file.
func (ac *AlignmentCache) Write(aligned []fasta.Record, raw FileFingerprint) error {
	if err := os.MkdirAll(ac.dir, 0755); err != nil {
		return fmt.Errorf("create alignment cache directory: %w", err)
	}
	if err := fasta.WriteFile(ac.Path(), aligned); err != nil {
		os.Remove(ac.Path())
		return fmt.Errorf("write alignment cache: %w", err)
	}
	return ac.writeMeta(raw)
}

// Clear removes the cached alignment files.
func (ac *AlignmentCache) Clear() {
	os.Remove(ac.Path())
	os.Remove(ac.metaPath())
}

func (ac *AlignmentCache) writeMeta(raw FileFingerprint) error {
	lines := append(raw.meta("fasta"),
		"created_at="+time.Now().UTC().Format(time.RFC3339),
		"",
	)
	return os.WriteFile(ac.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (ac *AlignmentCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(ac.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
