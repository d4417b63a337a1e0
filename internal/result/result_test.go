package result

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-ptm/internal/event"
	"github.com/inodb/vibe-ptm/internal/exon"
)

const groupsCSV = `file_name,group_name,replicate
S1,Control,
S2,AD,S2b
S3,AD,
`

func testGroups(t *testing.T) *Groups {
	t.Helper()
	g, err := ParseGroups(strings.NewReader(groupsCSV))
	require.NoError(t, err)
	return g
}

func mod(typ string, aa byte, pos int, tag exon.Tag) event.Event {
	return event.Event{Kind: event.Modification, Type: typ, AminoAcid: aa, Position: pos, Tag: tag}
}

func cleavage(pos int, tag exon.Tag) event.Event {
	return event.Event{Kind: event.Cleavage, Type: event.NonTryptic, AminoAcid: 'S', Position: pos, Tag: tag}
}

func TestParseGroups(t *testing.T) {
	g := testGroups(t)

	group, ok := g.Group("S2")
	assert.True(t, ok)
	assert.Equal(t, "AD", group)

	_, ok = g.Group("S4")
	assert.False(t, ok)

	assert.Equal(t, "S2", g.Primary("S2b"))
	assert.Equal(t, "S1", g.Primary("S1"))
	assert.Equal(t, []string{"S1", "S2", "S3"}, g.Samples())
}

func TestParseGroups_NoReplicateColumn(t *testing.T) {
	g, err := ParseGroups(strings.NewReader("\ufefffile_name,group_name\nA,G1\n\nB,G2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, g.Samples())
}

func TestParseGroups_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing columns", "name,group\nA,B\n"},
		{"duplicate", "file_name,group_name\nA,G\nA,H\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGroups(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadGroups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.csv")
	require.NoError(t, os.WriteFile(path, []byte(groupsCSV), 0o644))

	g, err := LoadGroups(path)
	require.NoError(t, err)
	assert.Len(t, g.Samples(), 3)

	_, err = LoadGroups(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestWriteModifications(t *testing.T) {
	s1 := []event.Event{mod("Phospho", 'S', 142, exon.General)}
	s2 := []event.Event{mod("Phospho", 'S', 142, exon.General), mod("Acetyl", 'K', 20, exon.Exon1)}
	cols := event.Columns(append(append([]event.Event{}, s1...), s2...))

	var buf bytes.Buffer
	w := NewWriter(&buf, testGroups(t))
	require.NoError(t, w.WriteModifications(cols, []Sample{{ID: "S1", Events: s1}, {ID: "S2", Events: s2}}))

	want := "ID,Group,Acetyl(K)@20_exon1,Phospho(S)@142_general\n" +
		",,Acetyl,Phospho\n" +
		",,K20,S142\n" +
		",,exon1,general\n" +
		"S1,Control,0,1\n" +
		"S2,AD,1,1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCleavages(t *testing.T) {
	s1 := []event.Event{cleavage(5, exon.General), cleavage(6, exon.General), cleavage(7, exon.General), cleavage(10, exon.General)}
	s3 := []event.Event{cleavage(6, exon.General)}
	cols := event.Collapse(append(append([]event.Event{}, s1...), s3...))

	var buf bytes.Buffer
	w := NewWriter(&buf, testGroups(t))
	require.NoError(t, w.WriteCleavages(cols, []Sample{{ID: "S1", Events: s1}, {ID: "S3", Events: s3}}))

	want := "ID,Group,5-7_general,10_general\n" +
		",,Non-Tryptic,Non-Tryptic\n" +
		",,5-7,10\n" +
		",,general,general\n" +
		"S1,Control,1,1\n" +
		"S3,AD,0.3333333333333333,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_UnknownSample(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, testGroups(t))

	err := w.WriteModifications(nil, []Sample{{ID: "S1"}, {ID: "nope"}})
	var unknown *UnknownSampleGroupError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Sample)
	assert.Empty(t, buf.String())
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	events := []event.Event{mod("Phospho", 'S', 3, exon.General)}
	cleavages := []event.Event{cleavage(4, exon.Exon2)}

	m := Matrices{
		Modifications:   event.Columns(events),
		Cleavages:       event.Collapse(cleavages),
		ModSamples:      []Sample{{ID: "S1", Events: events}},
		CleavageSamples: []Sample{{ID: "S1", Events: cleavages}},
	}
	require.NoError(t, WriteFiles(dir, "max_quant", testGroups(t), m))

	mods, err := os.ReadFile(ModificationsPath(dir, "max_quant"))
	require.NoError(t, err)
	assert.Contains(t, string(mods), "S1,Control,1\n")

	cl, err := os.ReadFile(CleavagesPath(dir, "max_quant"))
	require.NoError(t, err)
	assert.Contains(t, string(cl), "ID,Group,4_exon2\n")
	assert.Contains(t, string(cl), "S1,Control,1\n")
}

func TestWriteFiles_UnknownSampleWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	m := Matrices{CleavageSamples: []Sample{{ID: "ghost"}}}

	err := WriteFiles(dir, "mascot", testGroups(t), m)
	var unknown *UnknownSampleGroupError
	require.ErrorAs(t, err, &unknown)

	_, statErr := os.Stat(ModificationsPath(dir, "mascot"))
	assert.True(t, os.IsNotExist(statErr))
}
