package search

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Mascot CSV export columns.
const (
	colMascotHitNum      = "prot_hit_num"
	colMascotAccession   = "prot_acc"
	colMascotPeptide     = "pep_seq"
	colMascotVarMod      = "pep_var_mod"
	colMascotVarModPos   = "pep_var_mod_pos"
	mascotVarModsSection = "Variable modifications"
)

// MascotReader reads one Mascot CSV export. The export holds one sample.
type MascotReader struct {
	r          *csv.Reader
	sample     string
	lineNumber int

	variableMods map[int]string

	inVarMods bool
	inHits    bool
	seenHits  bool
	accession int
	peptide   int
	varMod    int
	varModPos int
}

// NewMascotReader creates a reader for an export of the given sample.
func NewMascotReader(r io.Reader, sample string) *MascotReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return &MascotReader{
		r:            cr,
		sample:       sample,
		variableMods: make(map[int]string),
	}
}

// VariableMods returns the variable modifications read so far, by number.
func (mr *MascotReader) VariableMods() map[int]string {
	return mr.variableMods
}

// Next returns the next peptide hit.
func (mr *MascotReader) Next() (*PeptideMatch, error) {
	for {
		rec, err := mr.r.Read()
		if errors.Is(err, io.EOF) {
			if !mr.seenHits {
				return nil, &ParseError{Line: mr.lineNumber, Message: "no prot_hit_num header found"}
			}
			return nil, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				mr.lineNumber = pe.Line
				return nil, &RowError{Line: pe.Line, Message: pe.Err.Error()}
			}
			return nil, fmt.Errorf("read mascot export: %w", err)
		}
		mr.lineNumber, _ = mr.r.FieldPos(0)

		first := strings.TrimSpace(rec[0])
		switch {
		case first == mascotVarModsSection || strings.HasPrefix(first, mascotVarModsSection):
			mr.inVarMods = true
			continue
		case first == colMascotHitNum:
			if err := mr.readHitHeader(rec); err != nil {
				return nil, err
			}
			mr.inVarMods = false
			mr.inHits = true
			mr.seenHits = true
			continue
		case mr.inHits:
			// hit rows start with the protein hit number
			if _, err := strconv.Atoi(first); err != nil {
				mr.inHits = false
				continue
			}
			return mr.hit(rec)
		case mr.inVarMods:
			mr.readVariableMod(rec)
		}
	}
}

func (mr *MascotReader) readHitHeader(rec []string) error {
	cols := make(map[string]int, len(rec))
	for i, h := range rec {
		cols[strings.TrimSpace(h)] = i
	}
	idx, err := requireColumns(cols, mr.lineNumber, colMascotAccession, colMascotPeptide, colMascotVarMod, colMascotVarModPos)
	if err != nil {
		return err
	}
	mr.accession, mr.peptide, mr.varMod, mr.varModPos = idx[0], idx[1], idx[2], idx[3]
	return nil
}

// readVariableMod reads a row such as 1,"Phospho (ST)",79.966331. A title
// row of the next section ends the table.
func (mr *MascotReader) readVariableMod(rec []string) {
	if len(rec) < 2 {
		if !strings.HasPrefix(strings.TrimSpace(rec[0]), "---") {
			mr.inVarMods = false
		}
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(rec[0]))
	if err != nil {
		return
	}
	mr.variableMods[n] = modName(rec[1])
}

func (mr *MascotReader) hit(rec []string) (*PeptideMatch, error) {
	peptide := strings.TrimSpace(field(rec, mr.peptide))
	if peptide == "" {
		return nil, &RowError{Line: mr.lineNumber, Message: "empty pep_seq"}
	}

	m := &PeptideMatch{
		Line:       mr.lineNumber,
		Samples:    []string{mr.sample},
		Accessions: strings.Trim(field(rec, mr.accession), `"' `),
		Peptide:    peptide,
		Confident:  true,
	}

	if strings.TrimSpace(field(rec, mr.varMod)) == "" {
		return m, nil
	}
	mods, err := parseMascotPositions(field(rec, mr.varModPos), peptide, mr.variableMods)
	if err != nil {
		return nil, &RowError{Line: mr.lineNumber, Message: err.Error()}
	}
	m.Mods = mods
	return m, nil
}

// parseMascotPositions decodes a pep_var_mod_pos string such as
// 0.00300000.0: N-terminus, one digit per residue, C-terminus. A non-zero
// digit is the number of the variable modification at that residue.
func parseMascotPositions(positions, peptide string, variableMods map[int]string) ([]Mod, error) {
	parts := strings.Split(strings.TrimSpace(positions), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid pep_var_mod_pos %q", positions)
	}
	if len(parts[1]) != len(peptide) {
		return nil, fmt.Errorf("pep_var_mod_pos %q does not match peptide %s", positions, peptide)
	}

	var mods []Mod
	add := func(code byte, site int) error {
		n, ok := mascotModNumber(code)
		if !ok {
			return fmt.Errorf("invalid modification code %q in %q", code, positions)
		}
		if n == 0 {
			return nil
		}
		name, ok := variableMods[n]
		if !ok {
			return fmt.Errorf("undefined variable modification %d", n)
		}
		mods = append(mods, Mod{Name: name, Site: site, AminoAcid: peptide[site-1]})
		return nil
	}

	for _, c := range []byte(parts[0]) {
		if err := add(c, 1); err != nil {
			return nil, err
		}
	}
	for i := 0; i < len(parts[1]); i++ {
		if err := add(parts[1][i], i+1); err != nil {
			return nil, err
		}
	}
	for _, c := range []byte(parts[2]) {
		if err := add(c, len(peptide)); err != nil {
			return nil, err
		}
	}
	return mods, nil
}

// mascotModNumber decodes 0-9 and A-Z (10 onwards).
func mascotModNumber(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	}
	return 0, false
}
