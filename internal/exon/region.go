// Package exon detects an alternatively spliced region among aligned isoforms.
package exon

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMultipleExons is returned when the isoforms differ in more than one
// variable region, or when a region has more than two variants.
var ErrMultipleExons = errors.New("multiple exons")

// Tag records which exon branch, if any, a canonical position belongs to.
type Tag string

// Variant tags in render order.
const (
	General Tag = "general"
	Exon1   Tag = "exon1"
	Exon2   Tag = "exon2"
)

// Order returns the sort rank of a tag: general < exon1 < exon2.
func (t Tag) Order() int {
	switch t {
	case General:
		return 0
	case Exon1:
		return 1
	case Exon2:
		return 2
	default:
		return 3
	}
}

// ParseTag parses a variant tag.
func ParseTag(s string) (Tag, error) {
	switch Tag(s) {
	case General, Exon1, Exon2:
		return Tag(s), nil
	}
	return "", fmt.Errorf("unknown variant tag %q", s)
}

// Region is the single variable region of an alignment.
// Start and End are 1-based, inclusive alignment columns.
type Region struct {
	Start     int
	End       int
	MinLength int

	// Length is the largest number of residues any isoform has inside the
	// region, i.e. the length of the longer variant.
	Length int

	Exon1 string
	Exon2 string

	Exon1Isoforms []string
	Exon2Isoforms []string
	NoneIsoforms  []string

	residues  map[string]int
	partition map[string]Tag
}

// Width returns the number of alignment columns the region spans.
func (r *Region) Width() int {
	return r.End - r.Start + 1
}

// Exon1Length returns the length of the first variant, or 0.
func (r *Region) Exon1Length() int {
	return len(r.Exon1)
}

// Exon2Length returns the length of the second variant, or 0.
func (r *Region) Exon2Length() int {
	return len(r.Exon2)
}

// Contains reports whether a 1-based alignment column lies inside the region.
func (r *Region) Contains(column int) bool {
	return column >= r.Start && column <= r.End
}

// Partition returns Exon1 or Exon2 for variant carriers and General for
// isoforms expressing neither variant.
func (r *Region) Partition(accession string) Tag {
	if tag, ok := r.partition[accession]; ok {
		return tag
	}
	return General
}

// Residues returns how many residues an isoform has inside the region.
func (r *Region) Residues(accession string) int {
	return r.residues[accession]
}

// CheckPartitions verifies that every accession is in exactly one partition
// and that the partitions hold nothing else.
func (r *Region) CheckPartitions(accessions []string) error {
	seen := make(map[string]int, len(accessions))
	for _, part := range [][]string{r.Exon1Isoforms, r.Exon2Isoforms, r.NoneIsoforms} {
		for _, acc := range part {
			seen[acc]++
		}
	}
	for _, acc := range accessions {
		switch seen[acc] {
		case 1:
			delete(seen, acc)
		case 0:
			return fmt.Errorf("isoform %s is in no exon partition", acc)
		default:
			return fmt.Errorf("isoform %s is in %d exon partitions", acc, seen[acc])
		}
	}
	if len(seen) > 0 {
		extra := make([]string, 0, len(seen))
		for acc := range seen {
			extra = append(extra, acc)
		}
		sort.Strings(extra)
		return fmt.Errorf("unknown isoforms in exon partitions: %v", extra)
	}
	return nil
}

func (r *Region) assign(accession string, tag Tag, residues int) {
	if r.partition == nil {
		r.partition = make(map[string]Tag)
		r.residues = make(map[string]int)
	}
	r.residues[accession] = residues
	switch tag {
	case Exon1:
		r.Exon1Isoforms = append(r.Exon1Isoforms, accession)
		r.partition[accession] = Exon1
	case Exon2:
		r.Exon2Isoforms = append(r.Exon2Isoforms, accession)
		r.partition[accession] = Exon2
	default:
		r.NoneIsoforms = append(r.NoneIsoforms, accession)
	}
}

// NewRegion builds a region from explicit variant assignments. residues maps
// each isoform to the number of residues it has inside the region; carriers
// maps variant carriers to Exon1 or Exon2. Isoforms absent from carriers
// express neither variant.
func NewRegion(start, end, minLength int, exon1, exon2 string, residues map[string]int, carriers map[string]Tag, order []string) *Region {
	r := &Region{
		Start:     start,
		End:       end,
		MinLength: minLength,
		Exon1:     exon1,
		Exon2:     exon2,
	}
	for _, acc := range order {
		n := residues[acc]
		if n > r.Length {
			r.Length = n
		}
		r.assign(acc, carriers[acc], n)
	}
	return r
}
