// Package isoform holds the aligned isoform sequences of a protein.
package isoform

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/inodb/vibe-ptm/internal/align"
	"github.com/inodb/vibe-ptm/internal/fasta"
)

// ErrPeptideNotFound is returned when no isoform contains a peptide.
var ErrPeptideNotFound = errors.New("peptide not found in any isoform")

// Isoform is a raw sequence together with its row in the alignment.
type Isoform struct {
	Accession string
	Sequence  string // ungapped
	Aligned   string // gapped, same length for every isoform
}

// HasGaps reports whether the aligned sequence contains gap characters.
func (i *Isoform) HasGaps() bool {
	return len(i.Sequence) != len(i.Aligned)
}

// Residue returns the amino acid at a 1-based raw offset, or 0 if out of range.
func (i *Isoform) Residue(offset int) byte {
	if offset < 1 || offset > len(i.Sequence) {
		return 0
	}
	return i.Sequence[offset-1]
}

// Table is the read-only set of isoforms for one run.
type Table struct {
	isoforms    []*Isoform
	byAccession map[string]*Isoform
	longest     []*Isoform // sorted by raw length, longest first
	aliases     map[string]string
	width       int
}

// NewTable pairs raw records with their aligned counterparts.
// Both slices must be in the same order.
func NewTable(raw, aligned []fasta.Record) (*Table, error) {
	if len(raw) != len(aligned) {
		return nil, fmt.Errorf("isoform table: %d raw sequences but %d aligned", len(raw), len(aligned))
	}
	if len(raw) == 0 {
		return nil, errors.New("isoform table: no sequences")
	}

	t := &Table{
		byAccession: make(map[string]*Isoform, len(raw)),
		width:       len(aligned[0].Sequence),
	}

	for i, rec := range raw {
		a := aligned[i]
		if a.Accession != rec.Accession {
			return nil, fmt.Errorf("isoform table: aligned record %d is %s, expected %s", i, a.Accession, rec.Accession)
		}
		if len(a.Sequence) != t.width {
			return nil, fmt.Errorf("isoform table: aligned sequence %s has length %d, expected %d", a.Accession, len(a.Sequence), t.width)
		}
		if align.Strip(a.Sequence) != rec.Sequence {
			return nil, fmt.Errorf("isoform table: aligned sequence %s does not match raw sequence", a.Accession)
		}
		if _, dup := t.byAccession[rec.Accession]; dup {
			return nil, fmt.Errorf("isoform table: duplicate accession %s", rec.Accession)
		}

		iso := &Isoform{Accession: rec.Accession, Sequence: rec.Sequence, Aligned: a.Sequence}
		t.isoforms = append(t.isoforms, iso)
		t.byAccession[iso.Accession] = iso
	}

	t.longest = make([]*Isoform, len(t.isoforms))
	copy(t.longest, t.isoforms)
	sort.SliceStable(t.longest, func(i, j int) bool {
		return len(t.longest[i].Sequence) > len(t.longest[j].Sequence)
	})

	return t, nil
}

// SetAliases sets the vendor accession alias table (e.g. "2N4R" -> "P10636-8").
func (t *Table) SetAliases(aliases map[string]string) {
	t.aliases = aliases
}

// Resolve maps a vendor accession to a table accession using the alias table.
func (t *Table) Resolve(accession string) string {
	accession = strings.TrimSpace(accession)
	if alias, ok := t.aliases[accession]; ok {
		return alias
	}
	// UniProt style sp|P10636-8|TAU_HUMAN
	if fields := strings.Split(accession, "|"); len(fields) > 2 {
		return t.Resolve(fields[1])
	}
	return accession
}

// Get returns the isoform with the given accession.
func (t *Table) Get(accession string) (*Isoform, bool) {
	iso, ok := t.byAccession[accession]
	return iso, ok
}

// Isoforms returns all isoforms in input order.
func (t *Table) Isoforms() []*Isoform {
	return t.isoforms
}

// Accessions returns all accessions in input order.
func (t *Table) Accessions() []string {
	out := make([]string, len(t.isoforms))
	for i, iso := range t.isoforms {
		out[i] = iso.Accession
	}
	return out
}

// Width returns the alignment length.
func (t *Table) Width() int {
	return t.width
}

// FindPeptide locates a peptide and returns the isoform it was found in and
// its 0-based offset in the raw sequence. Accessions reported by the search
// engine (separated by ';') are tried first; otherwise isoforms are searched
// longest first.
func (t *Table) FindPeptide(accessions, peptide string) (*Isoform, int, error) {
	if peptide == "" {
		return nil, 0, fmt.Errorf("%w: empty peptide", ErrPeptideNotFound)
	}

	for _, acc := range strings.Split(accessions, ";") {
		if acc = strings.TrimSpace(acc); acc == "" {
			continue
		}
		iso, ok := t.byAccession[t.Resolve(acc)]
		if !ok {
			continue
		}
		if idx := strings.Index(iso.Sequence, peptide); idx >= 0 {
			return iso, idx, nil
		}
	}

	for _, iso := range t.longest {
		if idx := strings.Index(iso.Sequence, peptide); idx >= 0 {
			return iso, idx, nil
		}
	}

	return nil, 0, fmt.Errorf("%w: %s (accession %s)", ErrPeptideNotFound, peptide, accessions)
}
