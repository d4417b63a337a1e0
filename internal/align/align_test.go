package align

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-ptm/internal/fasta"
)

var rawRecords = []fasta.Record{
	{Header: "sp|P1|ONE", Accession: "P1", Sequence: "MABCDEFGHI"},
	{Header: "sp|P2|TWO", Accession: "P2", Sequence: "MABXYCDEFGHI"},
}

// fakeAligner writes a shell script that behaves like clustalo: it writes
// body to the --outfile argument.
func fakeAligner(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "clustalo")
	script := "#!/bin/sh\n" +
		"for a in \"$@\"; do case \"$a\" in --outfile=*) out=\"${a#--outfile=}\";; esac; done\n" +
		body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestValidate(t *testing.T) {
	aligned := []fasta.Record{
		{Accession: "P2", Sequence: "mabxycdefghi"},
		{Accession: "P1", Sequence: "MAB--CDEFGHI"},
	}

	got, err := Validate(rawRecords, aligned)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "P1", got[0].Accession)
	assert.Equal(t, "MAB--CDEFGHI", got[0].Sequence)
	assert.Equal(t, "sp|P1|ONE", got[0].Header)
	assert.Equal(t, "MABXYCDEFGHI", got[1].Sequence)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		aligned []fasta.Record
	}{
		{"count mismatch", []fasta.Record{{Accession: "P1", Sequence: "MABCDEFGHI"}}},
		{"missing accession", []fasta.Record{
			{Accession: "P1", Sequence: "MAB--CDEFGHI"},
			{Accession: "P3", Sequence: "MABXYCDEFGHI"},
		}},
		{"unequal length", []fasta.Record{
			{Accession: "P1", Sequence: "MABCDEFGHI"},
			{Accession: "P2", Sequence: "MABXYCDEFGHI"},
		}},
		{"residues changed", []fasta.Record{
			{Accession: "P1", Sequence: "MAB--CDEFGHW"},
			{Accession: "P2", Sequence: "MABXYCDEFGHI"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(rawRecords, tt.aligned)
			var alignErr *Error
			assert.ErrorAs(t, err, &alignErr)
		})
	}
}

func TestClustalOmega_Align(t *testing.T) {
	exe := fakeAligner(t, `cat > "$out" <<'EOF'
>sp|P1|ONE
MAB--CDEFGHI
>sp|P2|TWO
MABXYCDEFGHI
EOF`)

	c := NewClustalOmega(exe, 10*time.Second)
	got, err := c.Align(context.Background(), rawRecords)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "MAB--CDEFGHI", got[0].Sequence)
	assert.Equal(t, "MABXYCDEFGHI", got[1].Sequence)
}

func TestClustalOmega_SingleSequence(t *testing.T) {
	c := NewClustalOmega("/does/not/exist", 0)
	got, err := c.Align(context.Background(), rawRecords[:1])
	require.NoError(t, err)
	assert.Equal(t, "MABCDEFGHI", got[0].Sequence)
}

func TestClustalOmega_Failure(t *testing.T) {
	exe := fakeAligner(t, `echo "bad input" >&2; exit 3`)

	c := NewClustalOmega(exe, 10*time.Second)
	_, err := c.Align(context.Background(), rawRecords)

	var alignErr *Error
	require.ErrorAs(t, err, &alignErr)
	assert.Contains(t, alignErr.Error(), "bad input")
}

func TestClustalOmega_CountMismatch(t *testing.T) {
	exe := fakeAligner(t, `printf '>sp|P1|ONE\nMABCDEFGHI\n' > "$out"`)

	c := NewClustalOmega(exe, 10*time.Second)
	_, err := c.Align(context.Background(), rawRecords)

	var alignErr *Error
	assert.ErrorAs(t, err, &alignErr)
}

func TestClustalOmega_Timeout(t *testing.T) {
	exe := fakeAligner(t, `exec sleep 10`)

	c := NewClustalOmega(exe, 100*time.Millisecond)
	_, err := c.Align(context.Background(), rawRecords)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestPrecomputed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aligned.fasta")
	require.NoError(t, fasta.WriteFile(path, []fasta.Record{
		{Header: "sp|P1|ONE", Accession: "P1", Sequence: "MAB--CDEFGHI"},
		{Header: "sp|P2|TWO", Accession: "P2", Sequence: "MABXYCDEFGHI"},
	}))

	got, err := Precomputed{Path: path}.Align(context.Background(), rawRecords)
	require.NoError(t, err)
	assert.Equal(t, "MAB--CDEFGHI", got[0].Sequence)

	_, err = Precomputed{Path: filepath.Join(t.TempDir(), "nope.fasta")}.Align(context.Background(), rawRecords)
	var alignErr *Error
	assert.ErrorAs(t, err, &alignErr)
}
