// Package result writes per-sample event matrices.
package result

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// UnknownSampleGroupError reports a sample missing from the groups table.
type UnknownSampleGroupError struct {
	Sample string
}

func (e *UnknownSampleGroupError) Error() string {
	return fmt.Sprintf("sample %q not found in groups file", e.Sample)
}

// GroupRow is one row of the groups table.
type GroupRow struct {
	FileName  string
	Group     string
	Replicate string
}

// Groups maps sample identifiers to group names.
type Groups struct {
	rows      []GroupRow
	byFile    map[string]int
	replicate map[string]string
}

// NewGroups builds a groups table from rows. Later rows for the same file
// name are rejected.
func NewGroups(rows []GroupRow) (*Groups, error) {
	g := &Groups{
		rows:      rows,
		byFile:    make(map[string]int, len(rows)),
		replicate: make(map[string]string),
	}
	for i, r := range rows {
		if _, dup := g.byFile[r.FileName]; dup {
			return nil, fmt.Errorf("duplicate file_name %q in groups table", r.FileName)
		}
		g.byFile[r.FileName] = i
		if r.Replicate != "" {
			g.replicate[r.Replicate] = r.FileName
		}
	}
	return g, nil
}

// LoadGroups reads a groups CSV file.
func LoadGroups(path string) (*Groups, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open groups file: %w", err)
	}
	defer f.Close()

	g, err := ParseGroups(f)
	if err != nil {
		return nil, fmt.Errorf("parse groups file %s: %w", path, err)
	}
	return g, nil
}

// ParseGroups reads a groups table with a header naming the file_name and
// group_name columns and an optional replicate column.
func ParseGroups(r io.Reader) (*Groups, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty groups table")
		}
		return nil, err
	}

	fileCol, groupCol, repCol := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "file_name":
			fileCol = i
		case "group_name":
			groupCol = i
		case "replicate":
			repCol = i
		}
	}
	if fileCol < 0 || groupCol < 0 {
		return nil, fmt.Errorf("groups table needs file_name and group_name columns, got %v", header)
	}

	var rows []GroupRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := GroupRow{
			FileName: field(rec, fileCol),
			Group:    field(rec, groupCol),
		}
		if row.FileName == "" {
			continue
		}
		if repCol >= 0 {
			row.Replicate = field(rec, repCol)
		}
		rows = append(rows, row)
	}

	return NewGroups(rows)
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

// Group returns the group of a sample.
func (g *Groups) Group(sample string) (string, bool) {
	i, ok := g.byFile[sample]
	if !ok {
		return "", false
	}
	return g.rows[i].Group, true
}

// Primary returns the sample a replicate is merged into, or the sample
// itself.
func (g *Groups) Primary(sample string) string {
	if p, ok := g.replicate[sample]; ok {
		return p
	}
	return sample
}

// Samples returns the file names in table order.
func (g *Groups) Samples() []string {
	out := make([]string, len(g.rows))
	for i, r := range g.rows {
		out[i] = r.FileName
	}
	return out
}

// Check returns an *UnknownSampleGroupError for the first sample without a
// group.
func (g *Groups) Check(samples []string) error {
	for _, s := range samples {
		if _, ok := g.byFile[s]; !ok {
			return &UnknownSampleGroupError{Sample: s}
		}
	}
	return nil
}
