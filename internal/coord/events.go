package coord

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-ptm/internal/event"
	"github.com/inodb/vibe-ptm/internal/isoform"
)

// DefaultCleavageResidues are the residues trypsin cleaves after.
const DefaultCleavageResidues = "KR"

// RawEvent is an event at a 1-based offset in an isoform's raw sequence.
type RawEvent struct {
	Accession string
	Offset    int
	Kind      event.Kind
	Type      string
	// AminoAcid is the residue reported by the search engine. When set it is
	// checked against the residue at the canonical position.
	AminoAcid byte
}

// Event normalizes a raw event.
func (n *Normalizer) Event(raw RawEvent) (event.Event, error) {
	pos, err := n.Normalize(raw.Accession, raw.Offset)
	if err != nil {
		return event.Event{}, err
	}

	aa, _ := n.Lookup(raw.Accession, pos.Canonical)
	if raw.AminoAcid != 0 && raw.AminoAcid != aa {
		return event.Event{}, &MismatchError{
			Accession: raw.Accession,
			RawOffset: raw.Offset,
			Canonical: pos.Canonical,
			Expected:  raw.AminoAcid,
			Found:     aa,
		}
	}

	typ := raw.Type
	if raw.Kind == event.Cleavage {
		typ = event.NonTryptic
	}

	return event.Event{
		Kind:      raw.Kind,
		Type:      typ,
		AminoAcid: aa,
		Position:  pos.Canonical,
		Tag:       pos.Tag,
	}, nil
}

// Modification normalizes a modification at a 1-based site within a peptide
// that starts at the 0-based offset start of the isoform's raw sequence.
func (n *Normalizer) Modification(iso *isoform.Isoform, start int, peptide string, site int, modType string, aa byte) (event.Event, error) {
	if site < 1 || site > len(peptide) {
		return event.Event{}, fmt.Errorf("modification %s at site %d outside peptide %s", modType, site, peptide)
	}
	if aa == 0 {
		aa = peptide[site-1]
	}
	return n.Event(RawEvent{
		Accession: iso.Accession,
		Offset:    start + site,
		Kind:      event.Modification,
		Type:      modType,
		AminoAcid: aa,
	})
}

// NTermCleavage returns the cleavage event at the first residue of a peptide
// found at the 0-based offset start.
func (n *Normalizer) NTermCleavage(iso *isoform.Isoform, start int, peptide string) (event.Event, error) {
	return n.Event(RawEvent{
		Accession: iso.Accession,
		Offset:    start + 1,
		Kind:      event.Cleavage,
		AminoAcid: peptide[0],
	})
}

// CTermCleavage returns the cleavage event at the last residue of a peptide
// found at the 0-based offset start.
func (n *Normalizer) CTermCleavage(iso *isoform.Isoform, start int, peptide string) (event.Event, error) {
	return n.Event(RawEvent{
		Accession: iso.Accession,
		Offset:    start + len(peptide),
		Kind:      event.Cleavage,
		AminoAcid: peptide[len(peptide)-1],
	})
}

// Cleavages returns the non-specific cleavage events of a peptide found at the
// 0-based offset start. The N-terminal cleavage is reported at the peptide's
// first residue when the preceding residue is not in residues; the C-terminal
// cleavage at its last residue when that residue is not in residues. The
// protein termini are not cleavage sites.
func (n *Normalizer) Cleavages(iso *isoform.Isoform, start int, peptide, residues string) ([]event.Event, error) {
	if peptide == "" {
		return nil, nil
	}
	if residues == "" {
		residues = DefaultCleavageResidues
	}

	var out []event.Event

	if start > 0 && strings.IndexByte(residues, iso.Sequence[start-1]) < 0 {
		e, err := n.NTermCleavage(iso, start, peptide)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	end := start + len(peptide)
	if end < len(iso.Sequence) && strings.IndexByte(residues, peptide[len(peptide)-1]) < 0 {
		e, err := n.CTermCleavage(iso, start, peptide)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, nil
}
