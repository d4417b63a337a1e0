// Package search reads peptide identifications from search-engine exports.
//
// Each reader yields one PeptideMatch per identified peptide: the samples it
// was seen in, the accessions reported for it, the peptide sequence and the
// modifications at 1-based sites within the peptide.
package search

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Format identifies a search-engine export.
type Format string

const (
	MaxQuant     Format = "max_quant"
	MSFragger    Format = "ms_fragger"
	Mascot       Format = "mascot"
	ProteinPilot Format = "protein_pilot"
)

// ParseFormat parses a format name or its two-letter short form.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "mq", "maxquant", string(MaxQuant):
		return MaxQuant, nil
	case "ms", "msfragger", string(MSFragger):
		return MSFragger, nil
	case "ma", string(Mascot):
		return Mascot, nil
	case "pp", "proteinpilot", string(ProteinPilot):
		return ProteinPilot, nil
	}
	return "", fmt.Errorf("unknown input format %q (want mq, ms, ma or pp)", s)
}

// PerSampleFiles reports whether the format stores one sample per file, so
// that its input is a directory.
func (f Format) PerSampleFiles() bool {
	return f == Mascot || f == ProteinPilot
}

// Mod is a modification at a 1-based site within a peptide.
type Mod struct {
	Name      string
	Site      int
	AminoAcid byte
}

// Termini lists the peptide ends the search engine reported as cleaved.
type Termini struct {
	N bool
	C bool
}

// PeptideMatch is one identified peptide.
type PeptideMatch struct {
	Line       int
	Samples    []string
	Accessions string // as reported, possibly ';'-separated
	Peptide    string
	Mods       []Mod
	// Confident reports whether the match passes the score threshold.
	// Modifications are only taken from confident matches.
	Confident bool
	// Cleaved holds the cleavages reported by the search engine, or nil when
	// they are to be inferred from the protease residues.
	Cleaved *Termini
}

// Reader yields peptide matches. Next returns nil, nil at the end of input
// and a *RowError for a row that could not be parsed; reading may continue
// after a *RowError.
type Reader interface {
	Next() (*PeptideMatch, error)
}

// ParseError is a fatal problem with an export's layout.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// RowError is a problem with a single row.
type RowError struct {
	Line    int
	Message string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// IsRowError reports whether err is a *RowError.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// ReadAll drains a reader. Row errors are passed to onRowError and skipped;
// any other error stops reading.
func ReadAll(r Reader, onRowError func(*RowError)) ([]*PeptideMatch, error) {
	var out []*PeptideMatch
	for {
		m, err := r.Next()
		if err != nil {
			var re *RowError
			if errors.As(err, &re) {
				if onRowError != nil {
					onRowError(re)
				}
				continue
			}
			return nil, err
		}
		if m == nil {
			return out, nil
		}
		out = append(out, m)
	}
}

// tsvReader reads tab-separated lines, skipping blank ones.
type tsvReader struct {
	r          *bufio.Reader
	lineNumber int
}

func newTSVReader(r io.Reader) *tsvReader {
	return &tsvReader{r: bufio.NewReaderSize(r, 1<<20)}
}

// next returns the fields of the next non-blank line, or nil at EOF.
func (t *tsvReader) next() ([]string, error) {
	for {
		line, err := t.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read line %d: %w", t.lineNumber+1, err)
		}
		if line == "" && err == io.EOF {
			return nil, nil
		}
		t.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields, nil
	}
}

// header reads lines until one whose first field is first, and returns the
// column index of every field in it.
func (t *tsvReader) header(first string) (map[string]int, error) {
	for {
		fields, err := t.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return nil, &ParseError{Line: t.lineNumber, Message: fmt.Sprintf("no header line starting with %q found", first)}
		}
		if strings.TrimPrefix(fields[0], "\ufeff") != first {
			continue
		}
		cols := make(map[string]int, len(fields))
		for i, f := range fields {
			if i == 0 {
				f = strings.TrimPrefix(f, "\ufeff")
			}
			if _, dup := cols[f]; !dup {
				cols[f] = i
			}
		}
		return cols, nil
	}
}

// requireColumns returns the indices of the named columns.
func requireColumns(cols map[string]int, line int, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx, ok := cols[name]
		if !ok {
			return nil, &ParseError{Line: line, Message: fmt.Sprintf("missing column %q", name)}
		}
		out[i] = idx
	}
	return out, nil
}

func field(fields []string, i int) string {
	if i >= 0 && i < len(fields) {
		return fields[i]
	}
	return ""
}
