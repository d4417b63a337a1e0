package search

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxQuant evidence.txt columns.
const (
	colMQSequence         = "Sequence"
	colMQModifiedSequence = "Modified sequence"
	colMQModifications    = "Modifications"
	colMQProteins         = "Proteins"
	colMQPEP              = "PEP"
	colMQExperiment       = "Experiment"
)

// DefaultPEPThreshold is the posterior error probability below which
// MaxQuant modifications are kept.
const DefaultPEPThreshold = 0.01

// MaxQuantReader reads a MaxQuant evidence.txt file. Each row is one
// peptide in one experiment.
type MaxQuantReader struct {
	tsv        *tsvReader
	threshold  float64
	sequence   int
	modified   int
	mods       int
	proteins   int
	pep        int
	experiment int
}

// NewMaxQuantReader reads the header of an evidence file. Modifications are
// kept from rows whose PEP is below pepThreshold.
func NewMaxQuantReader(r io.Reader, pepThreshold float64) (*MaxQuantReader, error) {
	t := newTSVReader(r)
	cols, err := t.header(colMQSequence)
	if err != nil {
		return nil, err
	}
	idx, err := requireColumns(cols, t.lineNumber, colMQSequence, colMQModifiedSequence, colMQProteins, colMQPEP)
	if err != nil {
		return nil, err
	}

	mr := &MaxQuantReader{
		tsv:        t,
		threshold:  pepThreshold,
		sequence:   idx[0],
		modified:   idx[1],
		proteins:   idx[2],
		pep:        idx[3],
		mods:       -1,
		experiment: -1,
	}
	if i, ok := cols[colMQModifications]; ok {
		mr.mods = i
	}
	for name, i := range cols {
		if strings.HasPrefix(name, colMQExperiment) && (mr.experiment < 0 || i < mr.experiment) {
			mr.experiment = i
		}
	}
	if mr.experiment < 0 {
		return nil, &ParseError{Line: t.lineNumber, Message: "missing Experiment column"}
	}
	return mr, nil
}

// Next returns the next evidence row.
func (mr *MaxQuantReader) Next() (*PeptideMatch, error) {
	fields, err := mr.tsv.next()
	if err != nil || fields == nil {
		return nil, err
	}
	line := mr.tsv.lineNumber

	peptide := field(fields, mr.sequence)
	if peptide == "" {
		return nil, &RowError{Line: line, Message: "empty sequence"}
	}
	experiment := field(fields, mr.experiment)
	if experiment == "" {
		return nil, &RowError{Line: line, Message: "empty experiment"}
	}
	pep, err := strconv.ParseFloat(field(fields, mr.pep), 64)
	if err != nil {
		return nil, &RowError{Line: line, Message: fmt.Sprintf("invalid PEP %q", field(fields, mr.pep))}
	}

	m := &PeptideMatch{
		Line:       line,
		Samples:    []string{experiment},
		Accessions: field(fields, mr.proteins),
		Peptide:    peptide,
		Confident:  pep < mr.threshold,
	}

	if field(fields, mr.mods) != "Unmodified" {
		mods, err := parseMaxQuantSequence(field(fields, mr.modified), peptide)
		if err != nil {
			return nil, &RowError{Line: line, Message: err.Error()}
		}
		m.Mods = mods
	}
	return m, nil
}

// parseMaxQuantSequence extracts modifications from a modified sequence such
// as _(ac)AAS(ph)DK(Oxidation (M))_. An annotation applies to the residue
// before it; a leading one applies to the first residue.
func parseMaxQuantSequence(modified, peptide string) ([]Mod, error) {
	var mods []Mod
	residues := make([]byte, 0, len(peptide))

	for i := 0; i < len(modified); i++ {
		c := modified[i]
		switch {
		case c == '(':
			depth, j := 1, i+1
			for ; j < len(modified) && depth > 0; j++ {
				switch modified[j] {
				case '(':
					depth++
				case ')':
					depth--
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", modified)
			}
			site := len(residues)
			if site == 0 {
				site = 1
			}
			mods = append(mods, Mod{Name: modName(modified[i+1 : j-1]), Site: site})
			i = j - 1
		case c >= 'A' && c <= 'Z':
			residues = append(residues, c)
		}
	}

	if string(residues) != peptide {
		return nil, fmt.Errorf("modified sequence %q does not match peptide %s", modified, peptide)
	}
	for i := range mods {
		if mods[i].Site > len(peptide) {
			return nil, fmt.Errorf("modification in %q outside peptide", modified)
		}
		mods[i].AminoAcid = peptide[mods[i].Site-1]
	}
	return mods, nil
}
