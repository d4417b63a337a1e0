// Package fasta reads and writes protein FASTA files.
package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is a single FASTA entry.
type Record struct {
	Header    string // header line without the leading '>'
	Accession string
	Sequence  string
}

// Load parses the FASTA file at path. Gzipped files (.gz) are supported.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	// Handle gzipped files
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return Parse(reader)
}

// Parse parses FASTA content. Records keep the order of the input.
// UniProt headers look like:
// >sp|P10636-8|TAU_HUMAN Isoform Tau-F of Microtubule-associated protein tau
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long sequences
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024) // 10MB max line

	var (
		records []Record
		current *Record
		seq     strings.Builder
	)

	flush := func() {
		if current != nil {
			current.Sequence = seq.String()
			records = append(records, *current)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ">") {
			flush()
			header := strings.TrimPrefix(line, ">")
			current = &Record{Header: header, Accession: ParseAccession(header)}
			seq.Reset()
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("sequence data before first header: %q", line)
		}
		seq.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan fasta: %w", err)
	}

	return records, nil
}

// ParseAccession extracts the accession from a FASTA header.
// For pipe-delimited UniProt headers (sp|P10636-8|TAU_HUMAN) it is the second
// field; otherwise it is the first whitespace-delimited token.
func ParseAccession(header string) string {
	header = strings.TrimPrefix(header, ">")

	if fields := strings.Split(header, "|"); len(fields) > 1 {
		return strings.TrimSpace(fields[1])
	}

	if idx := strings.IndexAny(header, " \t"); idx != -1 {
		return header[:idx]
	}

	return header
}

// Write writes records in FASTA format, wrapping sequences at 60 residues.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		header := rec.Header
		if header == "" {
			header = rec.Accession
		}
		if _, err := fmt.Fprintf(bw, ">%s\n", header); err != nil {
			return err
		}
		for i := 0; i < len(rec.Sequence); i += 60 {
			end := min(i+60, len(rec.Sequence))
			if _, err := bw.WriteString(rec.Sequence[i:end] + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFile writes records to path in FASTA format.
func WriteFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fasta file: %w", err)
	}
	if err := Write(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write fasta file: %w", err)
	}
	return f.Close()
}
