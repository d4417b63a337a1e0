package result

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/inodb/vibe-ptm/internal/event"
)

// Sample is the set of canonical events observed in one sample.
type Sample struct {
	ID     string
	Events []event.Event
}

// Writer writes event matrices as CSV: a header row of ID, Group and the
// column labels, three rows giving each column's event type, site and variant
// tag, and one row per sample.
type Writer struct {
	w      *csv.Writer
	groups *Groups
}

// NewWriter creates a matrix writer.
func NewWriter(w io.Writer, groups *Groups) *Writer {
	return &Writer{
		w:      csv.NewWriter(w),
		groups: groups,
	}
}

// WriteModifications writes a presence matrix: 1 when the sample carries the
// column's modification, 0 otherwise.
func (mw *Writer) WriteModifications(cols []event.Column, samples []Sample) error {
	return mw.write(cols, samples, func(s Sample) []string {
		seen := make(map[string]bool, len(s.Events))
		for _, e := range s.Events {
			seen[e.Label()] = true
		}
		row := make([]string, len(cols))
		for i, c := range cols {
			if seen[c.Label] {
				row[i] = "1"
			} else {
				row[i] = "0"
			}
		}
		return row
	})
}

// WriteCleavages writes a frequency matrix: for each cleavage range, the
// fraction of its positions the sample was cleaved at.
func (mw *Writer) WriteCleavages(cols []event.Column, samples []Sample) error {
	return mw.write(cols, samples, func(s Sample) []string {
		hits := event.NewHits(s.Events)
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = strconv.FormatFloat(event.CleavageScore(c, hits), 'g', -1, 64)
		}
		return row
	})
}

func (mw *Writer) write(cols []event.Column, samples []Sample, values func(Sample) []string) error {
	ids := make([]string, len(samples))
	for i, s := range samples {
		ids[i] = s.ID
	}
	if err := mw.groups.Check(ids); err != nil {
		return err
	}

	n := len(cols) + 2
	header := make([]string, 0, n)
	types := make([]string, 0, n)
	sites := make([]string, 0, n)
	tags := make([]string, 0, n)
	header = append(header, "ID", "Group")
	types = append(types, "", "")
	sites = append(sites, "", "")
	tags = append(tags, "", "")
	for _, c := range cols {
		header = append(header, c.Label)
		types = append(types, c.Type)
		sites = append(sites, c.Site)
		tags = append(tags, string(c.Tag))
	}
	if err := mw.w.WriteAll([][]string{header, types, sites, tags}); err != nil {
		return err
	}

	for _, s := range samples {
		group, _ := mw.groups.Group(s.ID)
		row := append([]string{s.ID, group}, values(s)...)
		if err := mw.w.Write(row); err != nil {
			return err
		}
	}

	mw.w.Flush()
	return mw.w.Error()
}
