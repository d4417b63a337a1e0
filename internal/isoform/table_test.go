package isoform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-ptm/internal/fasta"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	raw := []fasta.Record{
		{Accession: "P1", Sequence: "MABCDEFGHI"},
		{Accession: "P2", Sequence: "MABXYCDEFGHI"},
	}
	aligned := []fasta.Record{
		{Accession: "P1", Sequence: "MAB--CDEFGHI"},
		{Accession: "P2", Sequence: "MABXYCDEFGHI"},
	}
	tbl, err := NewTable(raw, aligned)
	require.NoError(t, err)
	return tbl
}

func TestNewTable(t *testing.T) {
	tbl := newTestTable(t)

	assert.Equal(t, 12, tbl.Width())
	assert.Equal(t, []string{"P1", "P2"}, tbl.Accessions())

	p1, ok := tbl.Get("P1")
	require.True(t, ok)
	assert.True(t, p1.HasGaps())
	assert.Equal(t, byte('C'), p1.Residue(4))
	assert.Equal(t, byte(0), p1.Residue(0))
	assert.Equal(t, byte(0), p1.Residue(11))

	p2, _ := tbl.Get("P2")
	assert.False(t, p2.HasGaps())
}

func TestNewTable_Errors(t *testing.T) {
	raw := []fasta.Record{{Accession: "P1", Sequence: "MABC"}}

	tests := []struct {
		name    string
		raw     []fasta.Record
		aligned []fasta.Record
	}{
		{"empty", nil, nil},
		{"count", raw, nil},
		{"order", raw, []fasta.Record{{Accession: "P2", Sequence: "MABC"}}},
		{"residues", raw, []fasta.Record{{Accession: "P1", Sequence: "MA-BD"}}},
		{"width", []fasta.Record{{Accession: "P1", Sequence: "MABC"}, {Accession: "P2", Sequence: "MAB"}},
			[]fasta.Record{{Accession: "P1", Sequence: "MABC"}, {Accession: "P2", Sequence: "MAB"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.raw, tt.aligned)
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	tbl := newTestTable(t)
	tbl.SetAliases(map[string]string{"2N4R": "P2"})

	assert.Equal(t, "P2", tbl.Resolve("2N4R"))
	assert.Equal(t, "P2", tbl.Resolve(" 2N4R "))
	assert.Equal(t, "P1", tbl.Resolve("sp|P1|TAU_HUMAN"))
	assert.Equal(t, "P2", tbl.Resolve("sp|2N4R|TAU_HUMAN"))
	assert.Equal(t, "Q9", tbl.Resolve("Q9"))
}

func TestFindPeptide(t *testing.T) {
	tbl := newTestTable(t)
	tbl.SetAliases(map[string]string{"short": "P1"})

	t.Run("longest first", func(t *testing.T) {
		iso, off, err := tbl.FindPeptide("", "CDEF")
		require.NoError(t, err)
		assert.Equal(t, "P2", iso.Accession)
		assert.Equal(t, 5, off)
	})

	t.Run("reported accession preferred", func(t *testing.T) {
		iso, off, err := tbl.FindPeptide("unknown;short", "CDEF")
		require.NoError(t, err)
		assert.Equal(t, "P1", iso.Accession)
		assert.Equal(t, 3, off)
	})

	t.Run("reported accession without peptide falls back", func(t *testing.T) {
		iso, _, err := tbl.FindPeptide("P1", "BXYC")
		require.NoError(t, err)
		assert.Equal(t, "P2", iso.Accession)
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := tbl.FindPeptide("P1", "WWW")
		assert.ErrorIs(t, err, ErrPeptideNotFound)
		_, _, err = tbl.FindPeptide("P1", "")
		assert.ErrorIs(t, err, ErrPeptideNotFound)
	})
}
