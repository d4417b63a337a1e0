// Package coord maps positions in isoform sequences onto the canonical
// coordinate system shared by all isoforms.
//
// Canonical positions follow the alignment columns, except that the variable
// exon region is collapsed into a single slot as wide as its longer variant.
// Exon residues of both variants share that slot and are told apart by their
// variant tag; residues after the region land on the same canonical position
// in every isoform.
package coord

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-ptm/internal/align"
	"github.com/inodb/vibe-ptm/internal/exon"
	"github.com/inodb/vibe-ptm/internal/isoform"
)

// Position is a canonical position and the exon branch it lies in.
type Position struct {
	Canonical int
	Tag       exon.Tag
}

// MismatchError reports that the residue at a computed canonical position is
// not the residue the raw event refers to. It indicates a parser or
// normalization defect and must abort the run.
type MismatchError struct {
	Accession string
	RawOffset int
	Canonical int
	Expected  byte
	Found     byte
}

func (e *MismatchError) Error() string {
	found := string(e.Found)
	if e.Found == 0 {
		found = "no residue"
	}
	return fmt.Sprintf("coordinate mismatch: %s offset %d expected %c, found %s at canonical position %d",
		e.Accession, e.RawOffset, e.Expected, found, e.Canonical)
}

// Normalizer maps raw isoform offsets to canonical positions. It only reads
// the isoform table and region and is safe for concurrent use.
type Normalizer struct {
	table  *isoform.Table
	region *exon.Region
	logger *zap.Logger
}

// NewNormalizer creates a normalizer. region may be nil when the isoforms
// have no variable exon.
func NewNormalizer(table *isoform.Table, region *exon.Region) *Normalizer {
	return &Normalizer{
		table:  table,
		region: region,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (n *Normalizer) SetLogger(l *zap.Logger) {
	n.logger = l
}

// Table returns the isoform table.
func (n *Normalizer) Table() *isoform.Table {
	return n.table
}

// Region returns the exon region, or nil.
func (n *Normalizer) Region() *exon.Region {
	return n.region
}

// MissingAminoAcids returns the number of gap columns outside the exon region
// that precede the residue at the 1-based raw offset in the isoform's aligned
// sequence. Gaps inside the region are accounted for by the exon collapse.
func (n *Normalizer) MissingAminoAcids(iso *isoform.Isoform, rawOffset int) int {
	if !iso.HasGaps() {
		return 0
	}

	missing, residues := 0, 0
	for i := 0; i < len(iso.Aligned); i++ {
		if iso.Aligned[i] == align.Gap {
			if n.region == nil || !n.region.Contains(i+1) {
				missing++
			}
			continue
		}
		residues++
		if residues == rawOffset {
			break
		}
	}
	return missing
}

// collapse applies the exon rules to a gap-adjusted offset.
func (n *Normalizer) collapse(accession string, offset int) Position {
	r := n.region
	if r == nil {
		return Position{Canonical: offset, Tag: exon.General}
	}

	before := r.Start - 1
	own := r.Residues(accession)
	switch {
	case offset > before+own:
		// Past the isoform's own exon residues: shift so that the residues
		// following the exon line up across isoforms.
		return Position{Canonical: offset + r.Length - own, Tag: exon.General}
	case offset > before:
		return Position{Canonical: offset, Tag: r.Partition(accession)}
	default:
		return Position{Canonical: offset, Tag: exon.General}
	}
}

// Normalize maps a 1-based offset in an isoform's raw sequence to its
// canonical position. The residue found at the canonical position is checked
// against the raw residue; a difference yields a *MismatchError.
func (n *Normalizer) Normalize(accession string, rawOffset int) (Position, error) {
	iso, ok := n.table.Get(accession)
	if !ok {
		return Position{}, fmt.Errorf("normalize: unknown isoform %s", accession)
	}
	if rawOffset < 1 || rawOffset > len(iso.Sequence) {
		return Position{}, fmt.Errorf("normalize: offset %d out of range for %s (length %d)", rawOffset, accession, len(iso.Sequence))
	}

	pos := n.collapse(accession, rawOffset+n.MissingAminoAcids(iso, rawOffset))

	if err := n.Check(accession, rawOffset, pos, iso.Residue(rawOffset)); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// Check verifies that the isoform has residue expected at pos.
func (n *Normalizer) Check(accession string, rawOffset int, pos Position, expected byte) error {
	found, _ := n.Lookup(accession, pos.Canonical)
	if found != expected {
		return &MismatchError{
			Accession: accession,
			RawOffset: rawOffset,
			Canonical: pos.Canonical,
			Expected:  expected,
			Found:     found,
		}
	}
	return nil
}

// Lookup returns the residue an isoform has at a canonical position, or
// ok=false if the isoform has no residue there.
func (n *Normalizer) Lookup(accession string, canonical int) (residue byte, ok bool) {
	iso, found := n.table.Get(accession)
	if !found {
		return 0, false
	}

	col := n.column(iso, canonical)
	if col < 1 || col > len(iso.Aligned) {
		return 0, false
	}
	c := iso.Aligned[col-1]
	if c == align.Gap {
		return 0, false
	}
	return c, true
}

// column maps a canonical position back to a 1-based alignment column of the
// isoform, or 0 if the isoform has no residue at that position.
func (n *Normalizer) column(iso *isoform.Isoform, canonical int) int {
	r := n.region
	if r == nil {
		return canonical
	}

	before := r.Start - 1
	switch {
	case canonical <= before:
		return canonical
	case canonical <= before+r.Length:
		// j-th residue of this isoform inside the region
		j := canonical - before
		seen := 0
		for col := r.Start; col <= r.End; col++ {
			if iso.Aligned[col-1] == align.Gap {
				continue
			}
			seen++
			if seen == j {
				return col
			}
		}
		return 0
	default:
		return canonical - r.Length + r.Width()
	}
}
