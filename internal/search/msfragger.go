package search

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// MS Fragger combined_modified_peptide.tsv columns.
const (
	colMSPeptide          = "Peptide Sequence"
	colMSModifiedSequence = "Modified Sequence"
	colMSProteinID        = "Protein ID"
	msIntensitySuffix     = " Intensity"
	msMaxLFQ              = "MaxLFQ Intensity"
)

// DefaultMassTolerance is the tolerance used to match modification masses.
const DefaultMassTolerance = 0.001

// DefaultMSFraggerMods maps mass shifts to modification types.
var DefaultMSFraggerMods = map[string]string{
	"42.0106":  "Acetyl",
	"79.9663":  "Phospho",
	"114.0429": "GG",
	"14.0157":  "Methyl",
	"0.9840":   "Citrullination",
}

// MassTable matches modification mass shifts to modification types.
type MassTable struct {
	masses    []float64
	names     []string
	tolerance float64
}

// NewMassTable builds a mass table from mass strings such as "79.9663".
func NewMassTable(mods map[string]string, tolerance float64) (*MassTable, error) {
	keys := make([]string, 0, len(mods))
	for k := range mods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mt := &MassTable{tolerance: tolerance}
	for _, k := range keys {
		mass, err := strconv.ParseFloat(strings.TrimSpace(k), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid modification mass %q: %w", k, err)
		}
		mt.masses = append(mt.masses, mass)
		mt.names = append(mt.names, mods[k])
	}
	return mt, nil
}

// Lookup returns the modification type closest to mass within tolerance.
func (mt *MassTable) Lookup(mass float64) (string, bool) {
	best, bestDiff := -1, math.Inf(1)
	for i, m := range mt.masses {
		if d := math.Abs(m - mass); d <= mt.tolerance && d < bestDiff {
			best, bestDiff = i, d
		}
	}
	if best < 0 {
		return "", false
	}
	return mt.names[best], true
}

// MSFraggerReader reads an MS Fragger combined_modified_peptide.tsv file.
// Samples are the "<sample> Intensity" columns; a peptide is present in a
// sample when its intensity is non-zero.
type MSFraggerReader struct {
	tsv      *tsvReader
	masses   *MassTable
	peptide  int
	modified int
	protein  int
	samples  []string
	sampleAt []int
}

// NewMSFraggerReader reads the header of a combined modified peptide file.
func NewMSFraggerReader(r io.Reader, masses *MassTable) (*MSFraggerReader, error) {
	t := newTSVReader(r)
	cols, err := t.header(colMSPeptide)
	if err != nil {
		return nil, err
	}
	idx, err := requireColumns(cols, t.lineNumber, colMSPeptide, colMSModifiedSequence, colMSProteinID)
	if err != nil {
		return nil, err
	}

	mr := &MSFraggerReader{
		tsv:      t,
		masses:   masses,
		peptide:  idx[0],
		modified: idx[1],
		protein:  idx[2],
	}

	type sampleCol struct {
		name string
		idx  int
	}
	var sc []sampleCol
	for name, i := range cols {
		if strings.HasSuffix(name, msIntensitySuffix) && !strings.Contains(name, msMaxLFQ) {
			sc = append(sc, sampleCol{strings.TrimSpace(strings.TrimSuffix(name, msIntensitySuffix)), i})
		}
	}
	sort.Slice(sc, func(i, j int) bool { return sc[i].idx < sc[j].idx })
	for _, s := range sc {
		mr.samples = append(mr.samples, s.name)
		mr.sampleAt = append(mr.sampleAt, s.idx)
	}
	if len(mr.samples) == 0 {
		return nil, &ParseError{Line: t.lineNumber, Message: "no sample intensity columns"}
	}
	return mr, nil
}

// Samples returns the sample names in column order.
func (mr *MSFraggerReader) Samples() []string {
	return mr.samples
}

// Next returns the next modified peptide.
func (mr *MSFraggerReader) Next() (*PeptideMatch, error) {
	fields, err := mr.tsv.next()
	if err != nil || fields == nil {
		return nil, err
	}
	line := mr.tsv.lineNumber

	peptide := field(fields, mr.peptide)
	if peptide == "" {
		return nil, &RowError{Line: line, Message: "empty peptide sequence"}
	}

	m := &PeptideMatch{
		Line:       line,
		Accessions: field(fields, mr.protein),
		Peptide:    peptide,
		Confident:  true,
	}
	for i, col := range mr.sampleAt {
		v := field(fields, col)
		if v == "" {
			continue
		}
		intensity, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &RowError{Line: line, Message: fmt.Sprintf("invalid intensity %q for %s", v, mr.samples[i])}
		}
		if intensity != 0 {
			m.Samples = append(m.Samples, mr.samples[i])
		}
	}

	mods, err := parseMSFraggerSequence(field(fields, mr.modified), peptide, mr.masses)
	if err != nil {
		return nil, &RowError{Line: line, Message: err.Error()}
	}
	m.Mods = mods
	return m, nil
}

// parseMSFraggerSequence extracts modifications from a modified sequence such
// as n[42.0106]AAS[79.9663]K. A mass applies to the residue before it; n[...]
// marks the peptide N-terminus. Masses not in the table are ignored.
func parseMSFraggerSequence(modified, peptide string, masses *MassTable) ([]Mod, error) {
	if modified == "" {
		return nil, nil
	}

	var mods []Mod
	residues := make([]byte, 0, len(peptide))
	nterm := false

	for i := 0; i < len(modified); i++ {
		c := modified[i]
		switch {
		case c == '[':
			j := strings.IndexByte(modified[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", modified)
			}
			text := modified[i+1 : i+j]
			i += j

			mass, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid mass %q in %q", text, modified)
			}
			name, ok := masses.Lookup(mass)
			if !ok {
				continue
			}
			site := len(residues)
			if nterm && site == 0 {
				site = 1
			}
			if site == 0 {
				return nil, fmt.Errorf("modification before first residue in %q", modified)
			}
			mods = append(mods, Mod{Name: name, Site: site})
		case c == 'n' && i == 0:
			nterm = true
		case c == 'c':
			// C-terminal masses attach to the last residue.
		case c >= 'A' && c <= 'Z':
			residues = append(residues, c)
		}
	}

	if string(residues) != peptide {
		return nil, fmt.Errorf("modified sequence %q does not match peptide %s", modified, peptide)
	}
	for i := range mods {
		mods[i].AminoAcid = peptide[mods[i].Site-1]
	}
	return mods, nil
}
