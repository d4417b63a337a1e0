package search

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tsv(rows ...[]string) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join(r, "\t")
	}
	return strings.Join(lines, "\n") + "\n"
}

// drain reads every match and collects row errors.
func drain(t *testing.T, r Reader) ([]*PeptideMatch, []*RowError) {
	t.Helper()
	var rowErrs []*RowError
	matches, err := ReadAll(r, func(re *RowError) { rowErrs = append(rowErrs, re) })
	require.NoError(t, err)
	return matches, rowErrs
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"mq":            MaxQuant,
		"MaxQuant":      MaxQuant,
		"ms":            MSFragger,
		"ma":            Mascot,
		"pp":            ProteinPilot,
		"protein_pilot": ProteinPilot,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xx")
	assert.Error(t, err)

	assert.True(t, Mascot.PerSampleFiles())
	assert.False(t, MaxQuant.PerSampleFiles())
}

func TestIncluded_Accept(t *testing.T) {
	tests := []struct {
		name   string
		aa     byte
		want   string
		wantOK bool
	}{
		{"Phospho", 'S', "Phospho", true},
		{"Phospho", 'K', "", false},
		{"Deamidated", 'N', "Deamidated", true},
		{"Deamidated", 'R', "Citrullination", true},
		{"Oxidation", 'M', "", false},
	}
	for _, tt := range tests {
		got, ok := DefaultIncluded.Accept(tt.name, tt.aa)
		assert.Equal(t, tt.wantOK, ok, "%s(%c)", tt.name, tt.aa)
		assert.Equal(t, tt.want, got)
	}

	anyResidue := Included{"Custom": ""}
	got, ok := anyResidue.Accept("Custom", 'W')
	assert.True(t, ok)
	assert.Equal(t, "Custom", got)
}

func TestModName(t *testing.T) {
	assert.Equal(t, "Phospho", modName("ph"))
	assert.Equal(t, "GG", modName("gg"))
	assert.Equal(t, "Phospho", modName("Phospho (STY)"))
	assert.Equal(t, "Acetyl", modName("Acetyl (Protein N-term)"))
	assert.Equal(t, "Oxidation", modName("Oxidation"))
}

func TestMaxQuantReader(t *testing.T) {
	input := tsv(
		[]string{"Sequence", "Modified sequence", "Modifications", "Proteins", "PEP", "Experiment"},
		[]string{"AASDK", "_AAS(ph)DK_", "Phospho (STY)", "P10636-8", "0.001", "S1"},
		[]string{"AASDK", "_(ac)AAS(Phospho (STY))DK_", "Acetyl (Protein N-term),Phospho (STY)", "P10636-8;P10636-2", "0.5", "S2"},
		[]string{"CDEF", "_CDEF_", "Unmodified", "P1", "0.001", "S1"},
		[]string{"", "_X_", "Unmodified", "P1", "0.1", "S1"},
		[]string{"GHI", "_GHI_", "Unmodified", "P1", "abc", "S1"},
		[]string{"GHI", "_GH(ph)_", "Phospho (STY)", "P1", "0.001", "S1"},
	)

	r, err := NewMaxQuantReader(strings.NewReader(input), DefaultPEPThreshold)
	require.NoError(t, err)
	matches, rowErrs := drain(t, r)

	require.Len(t, matches, 3)
	assert.Len(t, rowErrs, 3)

	assert.Equal(t, []string{"S1"}, matches[0].Samples)
	assert.Equal(t, "P10636-8", matches[0].Accessions)
	assert.True(t, matches[0].Confident)
	assert.Equal(t, []Mod{{Name: "Phospho", Site: 3, AminoAcid: 'S'}}, matches[0].Mods)
	assert.Nil(t, matches[0].Cleaved)

	assert.False(t, matches[1].Confident)
	assert.Equal(t, []Mod{
		{Name: "Acetyl", Site: 1, AminoAcid: 'A'},
		{Name: "Phospho", Site: 3, AminoAcid: 'S'},
	}, matches[1].Mods)

	assert.Empty(t, matches[2].Mods)
	assert.Equal(t, 4, matches[2].Line)
}

func TestMaxQuantReader_MissingHeader(t *testing.T) {
	_, err := NewMaxQuantReader(strings.NewReader("foo\tbar\n"), DefaultPEPThreshold)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)

	_, err = NewMaxQuantReader(strings.NewReader(tsv([]string{"Sequence", "Proteins"})), DefaultPEPThreshold)
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "Modified sequence")
}

func TestMassTable(t *testing.T) {
	mt, err := NewMassTable(DefaultMSFraggerMods, DefaultMassTolerance)
	require.NoError(t, err)

	name, ok := mt.Lookup(79.96633)
	assert.True(t, ok)
	assert.Equal(t, "Phospho", name)

	name, ok = mt.Lookup(0.984016)
	assert.True(t, ok)
	assert.Equal(t, "Citrullination", name)

	_, ok = mt.Lookup(15.9949)
	assert.False(t, ok)

	_, err = NewMassTable(map[string]string{"abc": "X"}, 0.01)
	assert.Error(t, err)
}

func TestMSFraggerReader(t *testing.T) {
	input := tsv(
		[]string{"Peptide Sequence", "Modified Sequence", "Protein ID", "S1 Intensity", "S1 MaxLFQ Intensity", "S2 Intensity"},
		[]string{"AASK", "n[42.0106]AAS[79.9663]K", "P10636-8", "100", "90", "0"},
		[]string{"CDEF", "CDEF", "P1", "0.0", "0", "5.5"},
		[]string{"GHIK", "GHIK[15.9949]", "P1", "1", "0", "1"},
		[]string{"GHIK", "GHIK", "P1", "x", "0", "1"},
		[]string{"GHIK", "GHI[79.9663", "P1", "1", "0", "1"},
	)

	r, err := NewMSFraggerReader(strings.NewReader(input), DefaultOptions().Masses)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, r.Samples())

	matches, rowErrs := drain(t, r)
	require.Len(t, matches, 3)
	assert.Len(t, rowErrs, 2)

	assert.Equal(t, []string{"S1"}, matches[0].Samples)
	assert.Equal(t, []Mod{
		{Name: "Acetyl", Site: 1, AminoAcid: 'A'},
		{Name: "Phospho", Site: 3, AminoAcid: 'S'},
	}, matches[0].Mods)

	assert.Equal(t, []string{"S2"}, matches[1].Samples)
	assert.Empty(t, matches[1].Mods)

	assert.Equal(t, []string{"S1", "S2"}, matches[2].Samples)
	assert.Empty(t, matches[2].Mods)
}

func TestMSFraggerReader_NoSamples(t *testing.T) {
	input := tsv([]string{"Peptide Sequence", "Modified Sequence", "Protein ID"})
	_, err := NewMSFraggerReader(strings.NewReader(input), DefaultOptions().Masses)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

const mascotExport = `Header
--------------------------------------------------------

"Variable modifications"
--------------------------------------------------------
Identifier,Name,Delta,Neutral loss(es)
1,"Phospho (ST)",79.966331,,97.976896
2,"Acetyl (K)",42.010565

"Search Parameters"
--------------------------------------------------------
Taxonomy filter,Homo sapiens

"Protein hits"
--------------------------------------------------------

prot_hit_num,prot_acc,prot_desc,pep_seq,pep_var_mod,pep_var_mod_pos
1,P10636-8,"Microtubule-associated protein tau, isoform",AASDK,Phospho (ST),0.00100.0
1,P10636-8,"Microtubule-associated protein tau, isoform",KLMN,,
2,P10636-2,desc,AAK,Acetyl (K),0.002.0
2,P10636-2,desc,AAK,Acetyl (K),0.0X2.0
`

func TestMascotReader(t *testing.T) {
	r := NewMascotReader(strings.NewReader(mascotExport), "F001.csv")
	matches, rowErrs := drain(t, r)

	assert.Equal(t, map[int]string{1: "Phospho", 2: "Acetyl"}, r.VariableMods())
	require.Len(t, matches, 3)
	require.Len(t, rowErrs, 1)
	assert.Contains(t, rowErrs[0].Message, "undefined variable modification")

	assert.Equal(t, []string{"F001.csv"}, matches[0].Samples)
	assert.Equal(t, "P10636-8", matches[0].Accessions)
	assert.Equal(t, "AASDK", matches[0].Peptide)
	assert.Equal(t, []Mod{{Name: "Phospho", Site: 3, AminoAcid: 'S'}}, matches[0].Mods)

	assert.Equal(t, "KLMN", matches[1].Peptide)
	assert.Empty(t, matches[1].Mods)

	assert.Equal(t, []Mod{{Name: "Acetyl", Site: 3, AminoAcid: 'K'}}, matches[2].Mods)
}

func TestMascotReader_NoHits(t *testing.T) {
	r := NewMascotReader(strings.NewReader("Header\n1,2\n"), "x")
	_, err := r.Next()
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestParseMascotPositions(t *testing.T) {
	mods := map[int]string{1: "Phospho", 2: "Acetyl"}

	got, err := parseMascotPositions("2.0010.0", "ASTK", mods)
	require.NoError(t, err)
	assert.Equal(t, []Mod{
		{Name: "Acetyl", Site: 1, AminoAcid: 'A'},
		{Name: "Phospho", Site: 3, AminoAcid: 'T'},
	}, got)

	_, err = parseMascotPositions("0.00.0", "ASTK", mods)
	assert.Error(t, err)
	_, err = parseMascotPositions("0001", "ASTK", mods)
	assert.Error(t, err)
	_, err = parseMascotPositions("0.00!0.0", "ASTK", mods)
	assert.Error(t, err)
}

func TestProteinPilotReader(t *testing.T) {
	input := tsv(
		[]string{"N", "Unused", "Accessions", "Conf", "Sequence", "Modifications", "Cleavages"},
		[]string{"1", "2", "sp|P10636-8|TAU_HUMAN;sp|P10636-2|TAU_HUMAN", "99", "AASDK", "Phospho(S)@3; Acetyl@N-term", "cleaved K-A@N-term; missed K-D@5"},
		[]string{"2", "2", "sp|P10636-8|TAU_HUMAN", "50", "LOWW", "", ""},
		[]string{"3", "2", "sp|P10636-8|TAU_HUMAN", "99.5", "CDEF", "", "cleaved F-G@C-term"},
		[]string{"4", "2", "x", "abc", "CDEF", "", ""},
		[]string{"5", "2", "x", "99", "CDEF", "Phospho(S)@9", ""},
	)

	r, err := NewProteinPilotReader(strings.NewReader(input), "PP1.txt", DefaultConfidence)
	require.NoError(t, err)
	matches, rowErrs := drain(t, r)

	require.Len(t, matches, 2)
	assert.Len(t, rowErrs, 2)

	assert.Equal(t, []string{"PP1.txt"}, matches[0].Samples)
	assert.Equal(t, []Mod{
		{Name: "Phospho", Site: 3, AminoAcid: 'S'},
		{Name: "Acetyl", Site: 1, AminoAcid: 'A'},
	}, matches[0].Mods)
	assert.Equal(t, &Termini{N: true}, matches[0].Cleaved)

	assert.Equal(t, "CDEF", matches[1].Peptide)
	assert.Equal(t, &Termini{C: true}, matches[1].Cleaved)
}

func TestInputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.CSV", "notes.md", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	files, err := InputFiles(Mascot, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.CSV"), filepath.Join(dir, "b.csv")}, files)

	files, err = InputFiles(ProteinPilot, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "c.txt")}, files)

	files, err = InputFiles(MaxQuant, "evidence.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"evidence.txt"}, files)

	_, err = InputFiles(Mascot, t.TempDir())
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "F001.csv")
	require.NoError(t, os.WriteFile(path, []byte(mascotExport), 0o644))

	var rowErrs int
	matches, err := ReadFile(Mascot, path, DefaultOptions(), func(*RowError) { rowErrs++ })
	require.NoError(t, err)
	assert.Len(t, matches, 3)
	assert.Equal(t, 1, rowErrs)
	assert.Equal(t, []string{"F001.csv"}, matches[0].Samples)

	_, err = ReadFile(Mascot, filepath.Join(dir, "missing.csv"), DefaultOptions(), nil)
	assert.Error(t, err)
}
