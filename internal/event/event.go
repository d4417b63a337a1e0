// Package event defines canonical modification and cleavage events and the
// column order used by the result tables.
package event

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-ptm/internal/exon"
)

// Kind distinguishes modifications from cleavage sites.
type Kind int

const (
	Modification Kind = iota
	Cleavage
)

func (k Kind) String() string {
	switch k {
	case Modification:
		return "modification"
	case Cleavage:
		return "cleavage"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// NonTryptic is the event type of every cleavage event.
const NonTryptic = "Non-Tryptic"

// Event is a modification or cleavage at a canonical position.
type Event struct {
	Kind      Kind
	Type      string // modification name, or NonTryptic
	AminoAcid byte
	Position  int
	Tag       exon.Tag
}

// Label renders the event as Phospho(S)@142_general (modification) or
// S@142_general (cleavage). Events are identified by their label.
func (e Event) Label() string {
	if e.Kind == Cleavage {
		return fmt.Sprintf("%c@%d_%s", e.AminoAcid, e.Position, e.Tag)
	}
	return fmt.Sprintf("%s(%c)@%d_%s", e.Type, e.AminoAcid, e.Position, e.Tag)
}

// Site renders the site label: S142 for modifications, 142 for cleavages.
func (e Event) Site() string {
	if e.Kind == Cleavage {
		return strconv.Itoa(e.Position)
	}
	return fmt.Sprintf("%c%d", e.AminoAcid, e.Position)
}

// ParseLabel parses a label produced by Event.Label.
func ParseLabel(label string) (Event, error) {
	at := strings.LastIndexByte(label, '@')
	us := strings.LastIndexByte(label, '_')
	if at < 1 || us < at {
		return Event{}, fmt.Errorf("invalid event label %q", label)
	}

	pos, err := strconv.Atoi(label[at+1 : us])
	if err != nil {
		return Event{}, fmt.Errorf("invalid position in event label %q", label)
	}
	tag, err := exon.ParseTag(label[us+1:])
	if err != nil {
		return Event{}, fmt.Errorf("invalid event label %q: %w", label, err)
	}

	site := label[:at]
	e := Event{Position: pos, Tag: tag}

	// Cleavage: single residue before '@'.
	if len(site) == 1 {
		e.Kind = Cleavage
		e.Type = NonTryptic
		e.AminoAcid = site[0]
		return e, nil
	}

	open := strings.LastIndexByte(site, '(')
	if open < 1 || !strings.HasSuffix(site, ")") || len(site)-open != 3 {
		return Event{}, fmt.Errorf("invalid event label %q", label)
	}
	e.Kind = Modification
	e.Type = site[:open]
	e.AminoAcid = site[open+1]
	return e, nil
}
