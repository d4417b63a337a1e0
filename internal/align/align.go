// Package align produces multiple sequence alignments of isoform sequences.
package align

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inodb/vibe-ptm/internal/fasta"
)

// Gap is the gap character used in aligned sequences.
const Gap = '-'

// ErrTimeout is returned when the external aligner does not finish in time.
var ErrTimeout = errors.New("alignment timed out")

// Aligner aligns raw sequences. The result holds the same records in the
// same order, each padded with gaps to a common length.
type Aligner interface {
	Align(ctx context.Context, records []fasta.Record) ([]fasta.Record, error)
}

// Error reports a failed or inconsistent alignment.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("alignment failed: %s: %v", e.Message, e.Err)
	}
	return "alignment failed: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Strip removes gap characters from an aligned sequence.
func Strip(aligned string) string {
	return strings.ReplaceAll(aligned, string(Gap), "")
}

// Validate checks that aligned holds one record per raw record, in the same
// order, with equal lengths, and that removing gaps yields the raw sequence.
// Records are matched by accession; the returned slice follows raw's order.
func Validate(raw, aligned []fasta.Record) ([]fasta.Record, error) {
	if len(raw) != len(aligned) {
		return nil, &Error{Message: fmt.Sprintf("expected %d sequences, aligner returned %d", len(raw), len(aligned))}
	}

	byAccession := make(map[string]fasta.Record, len(aligned))
	for _, rec := range aligned {
		if _, dup := byAccession[rec.Accession]; dup {
			return nil, &Error{Message: fmt.Sprintf("duplicate accession %s in alignment", rec.Accession)}
		}
		byAccession[rec.Accession] = rec
	}

	out := make([]fasta.Record, 0, len(raw))
	width := -1
	for _, rec := range raw {
		a, ok := byAccession[rec.Accession]
		if !ok {
			return nil, &Error{Message: fmt.Sprintf("accession %s missing from alignment", rec.Accession)}
		}
		seq := strings.ToUpper(a.Sequence)
		if width == -1 {
			width = len(seq)
		} else if len(seq) != width {
			return nil, &Error{Message: fmt.Sprintf("aligned sequence %s has length %d, expected %d", rec.Accession, len(seq), width)}
		}
		if Strip(seq) != strings.ToUpper(rec.Sequence) {
			return nil, &Error{Message: fmt.Sprintf("aligned sequence %s does not match its raw sequence", rec.Accession)}
		}
		out = append(out, fasta.Record{Header: rec.Header, Accession: rec.Accession, Sequence: seq})
	}

	return out, nil
}
