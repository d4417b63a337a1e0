package search

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ProteinPilot PeptideSummary columns.
const (
	colPPFirst         = "N"
	colPPAccessions    = "Accessions"
	colPPConf          = "Conf"
	colPPSequence      = "Sequence"
	colPPModifications = "Modifications"
	colPPCleavages     = "Cleavages"
)

// DefaultConfidence is the default minimum ProteinPilot confidence.
const DefaultConfidence = 0.95

// ProteinPilotReader reads a tab-delimited ProteinPilot PeptideSummary
// export. The export holds one sample; rows at or below the confidence
// threshold are skipped.
type ProteinPilotReader struct {
	tsv        *tsvReader
	sample     string
	confidence float64

	accessions int
	conf       int
	sequence   int
	mods       int
	cleavages  int
}

// NewProteinPilotReader reads the header of a peptide summary. confidence is
// a fraction; rows need a Conf above confidence*100.
func NewProteinPilotReader(r io.Reader, sample string, confidence float64) (*ProteinPilotReader, error) {
	t := newTSVReader(r)
	cols, err := t.header(colPPFirst)
	if err != nil {
		return nil, err
	}
	idx, err := requireColumns(cols, t.lineNumber, colPPAccessions, colPPConf, colPPSequence, colPPModifications, colPPCleavages)
	if err != nil {
		return nil, err
	}
	return &ProteinPilotReader{
		tsv:        t,
		sample:     sample,
		confidence: confidence,
		accessions: idx[0],
		conf:       idx[1],
		sequence:   idx[2],
		mods:       idx[3],
		cleavages:  idx[4],
	}, nil
}

// Next returns the next confident peptide.
func (pr *ProteinPilotReader) Next() (*PeptideMatch, error) {
	for {
		fields, err := pr.tsv.next()
		if err != nil || fields == nil {
			return nil, err
		}
		line := pr.tsv.lineNumber

		conf, err := strconv.ParseFloat(field(fields, pr.conf), 64)
		if err != nil {
			return nil, &RowError{Line: line, Message: fmt.Sprintf("invalid Conf %q", field(fields, pr.conf))}
		}
		if conf <= pr.confidence*100 {
			continue
		}

		peptide := field(fields, pr.sequence)
		if peptide == "" {
			return nil, &RowError{Line: line, Message: "empty sequence"}
		}

		mods, err := parseProteinPilotMods(field(fields, pr.mods), peptide)
		if err != nil {
			return nil, &RowError{Line: line, Message: err.Error()}
		}

		return &PeptideMatch{
			Line:       line,
			Samples:    []string{pr.sample},
			Accessions: field(fields, pr.accessions),
			Peptide:    peptide,
			Mods:       mods,
			Confident:  true,
			Cleaved:    parseProteinPilotCleavages(field(fields, pr.cleavages)),
		}, nil
	}
}

// parseProteinPilotMods parses a modification list such as
// "Phospho(S)@5; Acetyl@N-term".
func parseProteinPilotMods(s, peptide string) ([]Mod, error) {
	var mods []Mod
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		at := strings.LastIndexByte(part, '@')
		if at < 0 {
			return nil, fmt.Errorf("invalid modification %q", part)
		}
		name, where := part[:at], strings.TrimSpace(part[at+1:])

		var aa byte
		if open := strings.IndexByte(name, '('); open >= 0 {
			if open+1 < len(name) {
				aa = name[open+1]
			}
			name = name[:open]
		}

		var site int
		switch where {
		case "N-term":
			site = 1
		case "C-term":
			site = len(peptide)
		default:
			n, err := strconv.Atoi(where)
			if err != nil {
				return nil, fmt.Errorf("invalid modification position %q", part)
			}
			site = n
		}
		if site < 1 || site > len(peptide) {
			return nil, fmt.Errorf("modification %q outside peptide %s", part, peptide)
		}
		if aa == 0 || where == "N-term" || where == "C-term" {
			aa = peptide[site-1]
		}
		mods = append(mods, Mod{Name: strings.TrimSpace(name), Site: site, AminoAcid: aa})
	}
	return mods, nil
}

// parseProteinPilotCleavages reads the cleaved termini from a cleavage list
// such as "cleaved K-A@N-term; missed R-E@4".
func parseProteinPilotCleavages(s string) *Termini {
	t := &Termini{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "cleaved") {
			continue
		}
		switch {
		case strings.HasSuffix(part, "N-term"):
			t.N = true
		case strings.HasSuffix(part, "C-term"):
			t.C = true
		}
	}
	return t
}
