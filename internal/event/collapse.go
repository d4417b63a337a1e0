package event

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/willf/bitset"

	"github.com/inodb/vibe-ptm/internal/exon"
)

// Column is one event column of a result table. Modification columns hold a
// single event; cleavage columns may span a range of consecutive positions.
type Column struct {
	Label string
	Type  string
	Site  string
	Tag   exon.Tag
	Start int
	End   int
}

// Len returns the number of positions the column spans.
func (c Column) Len() int {
	return c.End - c.Start + 1
}

// Dedup removes events with duplicate labels, keeping the first occurrence.
func Dedup(events []Event) []Event {
	seen := make(map[string]bool, len(events))
	out := make([]Event, 0, len(events))
	for _, e := range events {
		label := e.Label()
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, e)
	}
	return out
}

// Sort orders events by position, then tag (general < exon1 < exon2), then
// label. Exon events are then gathered into contiguous blocks: general events
// before the first exon event, the exon1 block, the exon2 block, and the
// remaining general events.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.Tag.Order() != b.Tag.Order() {
			return a.Tag.Order() < b.Tag.Order()
		}
		return a.Label() < b.Label()
	})

	var before, exon1, exon2, after []Event
	inExon := false
	for _, e := range events {
		switch {
		case e.Tag == exon.Exon1:
			exon1 = append(exon1, e)
			inExon = true
		case e.Tag == exon.Exon2:
			exon2 = append(exon2, e)
			inExon = true
		case inExon:
			after = append(after, e)
		default:
			before = append(before, e)
		}
	}

	n := copy(events, before)
	n += copy(events[n:], exon1)
	n += copy(events[n:], exon2)
	copy(events[n:], after)
}

// Order deduplicates and sorts events, returning a new slice.
func Order(events []Event) []Event {
	out := Dedup(events)
	Sort(out)
	return out
}

// Columns turns ordered modification events into one column per event.
func Columns(events []Event) []Column {
	out := make([]Column, 0, len(events))
	for _, e := range Order(events) {
		out = append(out, Column{
			Label: e.Label(),
			Type:  e.Type,
			Site:  e.Site(),
			Tag:   e.Tag,
			Start: e.Position,
			End:   e.Position,
		})
	}
	return out
}

// Collapse orders cleavage events and merges maximal runs of consecutive
// positions with the same tag into ranges labeled start-end_tag. A single
// position keeps the position_tag form.
func Collapse(events []Event) []Column {
	ordered := Order(events)

	var out []Column
	for i := 0; i < len(ordered); {
		first := ordered[i]
		last := first
		j := i + 1
		// The same position may appear once per residue seen there.
		for j < len(ordered) && ordered[j].Tag == first.Tag &&
			(ordered[j].Position == last.Position || ordered[j].Position == last.Position+1) {
			last = ordered[j]
			j++
		}

		site := strconv.Itoa(first.Position)
		if last.Position != first.Position {
			site = fmt.Sprintf("%d-%d", first.Position, last.Position)
		}
		out = append(out, Column{
			Label: site + "_" + string(first.Tag),
			Type:  NonTryptic,
			Site:  site,
			Tag:   first.Tag,
			Start: first.Position,
			End:   last.Position,
		})
		i = j
	}
	return out
}

// Hits is the set of canonical positions a sample was observed at, per tag.
type Hits map[exon.Tag]*bitset.BitSet

// NewHits builds a hit set from events.
func NewHits(events []Event) Hits {
	h := make(Hits)
	for _, e := range events {
		h.Add(e)
	}
	return h
}

// Add records an event position.
func (h Hits) Add(e Event) {
	if e.Position < 0 {
		return
	}
	b, ok := h[e.Tag]
	if !ok {
		b = bitset.New(uint(e.Position + 1))
		h[e.Tag] = b
	}
	b.Set(uint(e.Position))
}

// Has reports whether position was observed with the given tag.
func (h Hits) Has(tag exon.Tag, position int) bool {
	b, ok := h[tag]
	if !ok || position < 0 {
		return false
	}
	return b.Test(uint(position))
}

// CleavageScore returns the fraction of a column's positions present in hits:
// 0 when none are, 1 when all are.
func CleavageScore(c Column, hits Hits) float64 {
	n := 0
	for pos := c.Start; pos <= c.End; pos++ {
		if hits.Has(c.Tag, pos) {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(n) / float64(c.Len())
}
