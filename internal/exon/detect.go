package exon

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/inodb/vibe-ptm/internal/align"
	"github.com/inodb/vibe-ptm/internal/isoform"
)

// DefaultMinLength is the default minimum exon length.
const DefaultMinLength = 5

// Column distinctness scores.
const (
	// GapVariant marks a column holding one residue plus gaps.
	GapVariant = -1
	// Biallelic marks a column holding exactly two different residues.
	Biallelic = 2
)

// Distinctness scores an alignment column:
//   - GapVariant (-1) when a single residue appears alongside gaps,
//   - the number of distinct residues when gaps and at least two residues appear,
//   - the number of distinct residues when no gaps appear.
//
// column is 0-based.
func Distinctness(isoforms []*isoform.Isoform, column int) int {
	symbols := make(map[byte]struct{}, 4)
	gap := false
	for _, iso := range isoforms {
		c := iso.Aligned[column]
		if c == align.Gap {
			gap = true
			continue
		}
		symbols[c] = struct{}{}
	}

	if gap {
		if len(symbols) <= 1 {
			return GapVariant
		}
		return len(symbols)
	}
	return len(symbols)
}

// Similar reports whether two exon sequences are variants of the same exon:
// lengths differ by at most one and the edit distance is at most minLength.
func Similar(a, b string, minLength int) bool {
	if d := len(a) - len(b); d > 1 || d < -1 {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= minLength
}

// Detector finds the variable region of an alignment.
type Detector struct {
	minLength int
	logger    *zap.Logger
}

// NewDetector creates a detector. Variable regions with fewer than minLength
// residues are treated as alignment artifacts.
func NewDetector(minLength int) *Detector {
	return &Detector{
		minLength: minLength,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (d *Detector) SetLogger(l *zap.Logger) {
	d.logger = l
}

// Detect is a convenience wrapper around Detector.Detect.
func Detect(isoforms []*isoform.Isoform, minLength int) (*Region, error) {
	return NewDetector(minLength).Detect(isoforms)
}

// Detect returns the variable region of the aligned isoforms, or nil if the
// isoforms do not differ in an exon. It fails with ErrMultipleExons if there
// is more than one region or more than two variants.
func (d *Detector) Detect(isoforms []*isoform.Isoform) (*Region, error) {
	if len(isoforms) == 0 {
		return nil, nil
	}
	width := len(isoforms[0].Aligned)

	scores := make([]int, width)
	for col := 0; col < width; col++ {
		scores[col] = Distinctness(isoforms, col)
	}

	var region *Region
	for i := 0; i < width; i++ {
		if scores[i] != Biallelic {
			continue
		}

		// [start, end) in 0-based columns
		start := i
		for j := i - 1; j >= 0 && scores[j] == GapVariant; j-- {
			start = j
		}
		end := i
		for end < width && (scores[end] == GapVariant || scores[end] == Biallelic) {
			end++
		}
		i = end

		length := regionLength(isoforms, start, end)
		if length < d.minLength {
			d.logger.Debug("ignoring short variable region",
				zap.Int("start", start+1),
				zap.Int("end", end),
				zap.Int("length", length))
			continue
		}

		candidate, err := d.buildRegion(isoforms, start, end)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			continue
		}
		if region != nil {
			return nil, fmt.Errorf("%w: variable regions at columns %d-%d and %d-%d, only one is supported",
				ErrMultipleExons, region.Start, region.End, candidate.Start, candidate.End)
		}
		region = candidate
	}

	if region != nil {
		d.logger.Info("detected exon",
			zap.Int("start", region.Start),
			zap.Int("end", region.End),
			zap.Int("length", region.Length),
			zap.Strings("exon1_isoforms", region.Exon1Isoforms),
			zap.Strings("exon2_isoforms", region.Exon2Isoforms),
			zap.Strings("none_isoforms", region.NoneIsoforms))
	}

	return region, nil
}

// regionLength returns the residue count of the fullest isoform in [start, end).
func regionLength(isoforms []*isoform.Isoform, start, end int) int {
	minGaps := -1
	for _, iso := range isoforms {
		gaps := strings.Count(iso.Aligned[start:end], string(align.Gap))
		if minGaps == -1 || gaps < minGaps {
			minGaps = gaps
		}
	}
	return end - start - minGaps
}

// buildRegion buckets the isoforms' sub-sequences in [start, end) into at most
// two variants. It returns nil if no isoform carries a variant longer than the
// minimum length.
func (d *Detector) buildRegion(isoforms []*isoform.Isoform, start, end int) (*Region, error) {
	var exon1, exon2 string
	residues := make(map[string]int, len(isoforms))
	carriers := make(map[string]Tag, len(isoforms))
	order := make([]string, 0, len(isoforms))

	for _, iso := range isoforms {
		sub := align.Strip(iso.Aligned[start:end])
		residues[iso.Accession] = len(sub)
		order = append(order, iso.Accession)

		if len(sub) <= d.minLength {
			continue
		}

		switch {
		case exon1 == "":
			exon1 = sub
			carriers[iso.Accession] = Exon1
		case Similar(exon1, sub, d.minLength):
			carriers[iso.Accession] = Exon1
		case exon2 == "":
			exon2 = sub
			carriers[iso.Accession] = Exon2
		case Similar(exon2, sub, d.minLength):
			carriers[iso.Accession] = Exon2
		default:
			return nil, fmt.Errorf("%w: more than two variants of the exon at columns %d-%d (isoform %s)",
				ErrMultipleExons, start+1, end, iso.Accession)
		}
	}

	if exon1 == "" {
		return nil, nil
	}

	return NewRegion(start+1, end, d.minLength, exon1, exon2, residues, carriers, order), nil
}
